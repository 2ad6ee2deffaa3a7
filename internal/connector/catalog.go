package connector

import (
	"context"
	"time"

	"bitbucket.org/vron/connector-hub/internal/ron"
)

// Catalog reads go through the Redis cache when one is configured. RON's
// tour catalog changes rarely and the tour list flow reads it three times
// per tour, so even a short TTL takes most of the load off the backend.
const catalogTTL = time.Hour

func (d *Dispatcher) tourTimes(ctx context.Context, s *session, tourCode string) ([]ron.TourTime, error) {
	var times []ron.TourTime
	key := "times:" + s.hostID + ":" + tourCode
	if d.cache != nil && d.cache.Fetch(ctx, key, &times) {
		return times, nil
	}

	times, err := s.backend.TourTimes(ctx, tourCode)
	if err != nil {
		return nil, err
	}

	d.cacheStore(ctx, s, key, times)
	return times, nil
}

func (d *Dispatcher) tourBases(ctx context.Context, s *session, tourCode string) ([]ron.TourBasis, error) {
	var bases []ron.TourBasis
	key := "bases:" + s.hostID + ":" + tourCode
	if d.cache != nil && d.cache.Fetch(ctx, key, &bases) {
		return bases, nil
	}

	bases, err := s.backend.TourBases(ctx, tourCode)
	if err != nil {
		return nil, err
	}

	d.cacheStore(ctx, s, key, bases)
	return bases, nil
}

func (d *Dispatcher) tourWebDetails(ctx context.Context, s *session, tourCode string) (map[string]any, error) {
	var details map[string]any
	key := "webdetails:" + s.hostID + ":" + tourCode
	if d.cache != nil && d.cache.Fetch(ctx, key, &details) {
		return details, nil
	}

	details, err := s.backend.TourWebDetails(ctx, tourCode)
	if err != nil {
		return nil, err
	}

	d.cacheStore(ctx, s, key, details)
	return details, nil
}

func (d *Dispatcher) tours(ctx context.Context, s *session) ([]ron.Tour, error) {
	var tours []ron.Tour
	key := "tours:" + s.hostID
	if d.cache != nil && d.cache.Fetch(ctx, key, &tours) {
		return tours, nil
	}

	tours, err := s.backend.Tours(ctx)
	if err != nil {
		return nil, err
	}

	d.cacheStore(ctx, s, key, tours)
	return tours, nil
}

func (d *Dispatcher) cacheStore(ctx context.Context, s *session, key string, value any) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Store(ctx, key, value, catalogTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}
