package connector

import (
	"context"

	"bitbucket.org/vron/connector-hub/internal/ron"
	"bitbucket.org/vron/connector-hub/internal/store"
	"bitbucket.org/vron/connector-hub/internal/viator"
	"github.com/rs/zerolog"
)

// availability answers one AvailabilityRequest: one RON query per travel
// date, one vacancy count per basis option, recomposed into TourAvailability
// blocks. A request without an explicit basis is expanded to the cross
// product of the tour's times and bases.
func (d *Dispatcher) availability(ctx context.Context, request *viator.Request, logger *zerolog.Logger) []byte {
	s, requestError := d.prepare(ctx, request, logger)
	if requestError != nil {
		requestsTotal.WithLabelValues(string(viator.KindAvailability), "error").Inc()
		return request.AvailabilityResponse(nil, requestError)
	}

	// rotation state is refreshed on every request kind, not just bookings
	d.rotatePaymentOption(ctx, s)

	dates, requestError := d.travelDates(request)
	if requestError != nil {
		d.logStatus(request, store.StatusError, "Invalid travel dates", "")
		requestsTotal.WithLabelValues(string(viator.KindAvailability), "error").Inc()
		return request.AvailabilityResponse(nil, requestError)
	}

	options, err := d.basisOptions(ctx, s)
	if err != nil {
		d.logStatus(request, store.StatusError, "RON catalog read failed: "+err.Error(), "")
		requestsTotal.WithLabelValues(string(viator.KindAvailability), "error").Inc()
		return request.AvailabilityResponse(nil, errNothingReturned.response())
	}

	blocks := []viator.TourAvailability{}
	for _, date := range dates {
		backendDate, err := viator.ToBackendDate(date)
		if err != nil {
			continue
		}

		vacancies, err := s.backend.TourAvailabilityRange(ctx, ron.AvailabilityQuery{
			TourCode: request.TourCode,
			Date:     backendDate,
			Options:  options,
		})
		if err != nil {
			logger.Warn().Err(err).Str("date", date).Msg("availability query failed")
			continue
		}

		for i, option := range options {
			if i >= len(vacancies) {
				break
			}
			status := viator.AvailabilityStatusUnavailable
			if vacancies[i] > 0 {
				status = viator.AvailabilityStatusAvailable
			}
			blocks = append(blocks, viator.TourAvailability{
				TourCode:   request.TourCode,
				TravelDate: date,
				Basis:      "B=" + option.BasisID + ";S=" + option.SubBasisID + ";T=" + option.TourTimeID,
				Status:     status,
				Vacancies:  vacancies[i],
			})
		}
	}

	if len(blocks) == 0 {
		d.logStatus(request, store.StatusError, "Nothing returned for availability query", "")
		requestsTotal.WithLabelValues(string(viator.KindAvailability), "error").Inc()
		return request.AvailabilityResponse(nil, errNothingReturned.response())
	}

	d.logStatus(request, store.StatusCompleteAccepted, "", "")
	requestsTotal.WithLabelValues(string(viator.KindAvailability), "success").Inc()
	return request.AvailabilityResponse(blocks, nil)
}

// travelDates expands the request into the list of partner-format dates to
// query. A single TravelDate wins over a StartDate/EndDate range.
func (d *Dispatcher) travelDates(request *viator.Request) ([]string, *viator.RequestError) {
	if request.TravelDate != "" {
		if _, err := viator.ToBackendDate(request.TravelDate); err != nil {
			return nil, errMalformed.withTag("TravelDate")
		}
		return []string{request.TravelDate}, nil
	}

	if request.StartDate == "" || request.EndDate == "" {
		return nil, errMalformed.withTag("TravelDate")
	}

	dates, err := viator.DateRange(request.StartDate, request.EndDate)
	if err != nil || len(dates) == 0 {
		return nil, errMalformed.withTag("StartDate")
	}
	return dates, nil
}

// basisOptions resolves the option set to query: the request's own basis
// triple when present, otherwise every time and basis the tour offers.
func (d *Dispatcher) basisOptions(ctx context.Context, s *session) ([]ron.BasisOption, error) {
	if s.request.HasExplicitBasis() {
		return []ron.BasisOption{{
			BasisID:    s.request.BasisID,
			SubBasisID: s.request.SubBasisID,
			TourTimeID: s.request.TourTimeID,
		}}, nil
	}

	times, err := d.tourTimes(ctx, s, s.request.TourCode)
	if err != nil {
		return nil, err
	}

	bases, err := d.tourBases(ctx, s, s.request.TourCode)
	if err != nil {
		return nil, err
	}

	options := []ron.BasisOption{}
	for _, tourTime := range times {
		for _, basis := range bases {
			options = append(options, ron.BasisOption{
				BasisID:    basis.ID,
				SubBasisID: basis.SubBasisID,
				TourTimeID: tourTime.ID,
			})
		}
	}
	return options, nil
}
