package connector

import (
	"context"

	"bitbucket.org/vron/connector-hub/internal/store"
	"bitbucket.org/vron/connector-hub/internal/viator"
	"github.com/rs/zerolog"
)

// booking translates one BookingRequest into a RON writeReservation call.
// A rejected reservation is still a successfully processed request: the
// partner gets RequestStatus SUCCESS with TransactionStatus REJECTED.
func (d *Dispatcher) booking(ctx context.Context, request *viator.Request, logger *zerolog.Logger) []byte {
	s, requestError := d.prepare(ctx, request, logger)
	if requestError != nil {
		requestsTotal.WithLabelValues(string(viator.KindBooking), "error").Inc()
		return request.BookingResponse("", "", requestError)
	}

	paymentOption := d.rotatePaymentOption(ctx, s)

	pickups, err := s.backend.TourPickups(ctx, request.TourCode, request.TourTimeID, request.BasisID)
	if err != nil {
		// booking proceeds on the tour's default pickup
		logger.Warn().Err(err).Str("tourCode", request.TourCode).Msg("pickup list read failed")
		pickups = nil
	}
	request.ResolvePickupKey(pickups)

	confirmation, err := s.backend.WriteReservation(ctx, request.ReservationFields(), paymentOption)
	if err != nil && d.pickupMandatory(ctx, err) && len(pickups) > 0 {
		// one retry with the tour's first pickup forced in
		logger.Info().
			Str("externalReference", request.ExternalReference).
			Str("pickupKey", pickups[0].Key).
			Msg("retrying reservation with forced pickup")
		request.ForcePickup(pickups[0])
		confirmation, err = s.backend.WriteReservation(ctx, request.ReservationFields(), paymentOption)
	}

	if err != nil {
		faultText := s.backend.FaultMessage()
		if faultText == "" {
			faultText = err.Error()
		}
		d.logStatus(request, store.StatusCompleteRejected, faultText, "")
		requestsTotal.WithLabelValues(string(viator.KindBooking), "rejected").Inc()
		return request.BookingResponse("", faultText, nil)
	}

	d.logStatus(request, store.StatusCompleteAccepted, "", confirmation)
	requestsTotal.WithLabelValues(string(viator.KindBooking), "success").Inc()
	return request.BookingResponse(confirmation, "", nil)
}
