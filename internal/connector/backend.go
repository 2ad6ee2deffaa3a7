package connector

import (
	"context"

	"bitbucket.org/vron/connector-hub/internal/ron"
	"github.com/rs/zerolog"
)

// Backend is the reservation engine surface the dispatcher drives. Satisfied
// by *ron.Client; tests substitute a scripted fake.
type Backend interface {
	SetHostID(hostID string)
	FaultMessage() string

	Login(ctx context.Context, resellerID string) error

	TourPickups(ctx context.Context, tourCode, tourTimeID, basisID string) ([]ron.Pickup, error)
	TourTimes(ctx context.Context, tourCode string) ([]ron.TourTime, error)
	TourBases(ctx context.Context, tourCode string) ([]ron.TourBasis, error)
	Tours(ctx context.Context) ([]ron.Tour, error)
	TourWebDetails(ctx context.Context, tourCode string) (map[string]any, error)
	TourAvailabilityRange(ctx context.Context, query ron.AvailabilityQuery) ([]int, error)
	PaymentOptions(ctx context.Context) ([]string, error)

	WriteReservation(ctx context.Context, fields map[string]any, paymentOption string) (string, error)
}

// BackendFactory builds one backend client per inbound request; the session
// token lives and dies with that request.
type BackendFactory func(options ron.Options, logger *zerolog.Logger) Backend

func defaultBackendFactory(options ron.Options, logger *zerolog.Logger) Backend {
	return ron.NewClient(options, logger)
}
