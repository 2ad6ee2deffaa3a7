package auditlog

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/vron/connector-hub/internal/store"
	"github.com/rs/zerolog"
)

const defaultBuffer = 256

// Sink writes audit records through a bounded queue consumed by one worker.
// Producers never block and never see write failures: a crashed log write
// must not change the response sent to the partner.
type Sink struct {
	queue  chan store.Record
	log    store.AuditLog
	logger *zerolog.Logger
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func New(log store.AuditLog, logger *zerolog.Logger, buffer int) *Sink {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	sink := &Sink{
		queue:  make(chan store.Record, buffer),
		log:    log,
		logger: logger,
	}

	sink.wg.Add(1)
	go sink.worker()

	return sink
}

func (s *Sink) worker() {
	defer s.wg.Done()

	for record := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.log.Upsert(ctx, record); err != nil {
			s.logger.Warn().
				Err(err).
				Str("externalReference", record.ExternalReference).
				Str("status", record.Status).
				Msg("audit log write failed")
		}
		cancel()
	}
}

// Log enqueues a record. Drops it with a warning when the queue is full or
// the sink has already been closed.
func (s *Sink) Log(record store.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn().
			Str("externalReference", record.ExternalReference).
			Str("status", record.Status).
			Msg("audit log closed, record dropped")
		return
	}

	select {
	case s.queue <- record:
	default:
		s.logger.Warn().
			Str("externalReference", record.ExternalReference).
			Str("status", record.Status).
			Msg("audit log queue full, record dropped")
	}
}

// Close drains outstanding records. Used on shutdown and by tests.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.queue)
	})
	s.wg.Wait()
}
