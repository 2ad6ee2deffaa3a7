package slowlog

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger times named breakpoints around backend calls. Every stop is logged
// at debug; stops over the threshold are raised to warn because a slow RON
// round trip is the usual cause of partner-side timeouts.
type Logger interface {
	Start(name string)
	Stop(name string) time.Duration
}

type slowLogger struct {
	log           *zerolog.Logger
	threshold     time.Duration
	ongoingTimers map[string]time.Time
	sync.Mutex
}

func (s *slowLogger) Start(name string) {
	s.Lock()
	s.ongoingTimers[name] = time.Now()
	s.Unlock()
}

func (s *slowLogger) Stop(name string) time.Duration {
	s.Lock()
	defer s.Unlock()

	start := s.ongoingTimers[name]
	duration := time.Since(start)

	event := s.log.Debug()
	if s.threshold > 0 && duration >= s.threshold {
		event = s.log.Warn()
	}
	event.
		Float64("duration", duration.Seconds()).
		Str("breakpoint_name", name).
		Msg("")

	delete(s.ongoingTimers, name)

	return duration
}

func CreateLogger(log *zerolog.Logger, threshold time.Duration) *slowLogger {
	logger := log.With().Str("label", "slowlog").Logger()
	return &slowLogger{
		log:           &logger,
		threshold:     threshold,
		ongoingTimers: make(map[string]time.Time),
	}
}
