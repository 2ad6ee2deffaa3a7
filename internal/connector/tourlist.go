package connector

import (
	"context"
	"time"

	"bitbucket.org/vron/connector-hub/internal/store"
	"bitbucket.org/vron/connector-hub/internal/tools/slowlog"
	"bitbucket.org/vron/connector-hub/internal/viator"
	"github.com/rs/zerolog"
)

const slowTourListThreshold = 10 * time.Second

// tourList enumerates the host's tours and assembles one summary per tour
// that has times, bases and web details. Tours missing any of the three are
// not bookable through this channel and are skipped without failing the
// request.
func (d *Dispatcher) tourList(ctx context.Context, request *viator.Request, logger *zerolog.Logger) []byte {
	s, requestError := d.prepare(ctx, request, logger)
	if requestError != nil {
		requestsTotal.WithLabelValues(string(viator.KindTourList), "error").Inc()
		return request.TourListResponse(nil, requestError)
	}

	d.rotatePaymentOption(ctx, s)

	timing := slowlog.CreateLogger(logger, slowTourListThreshold)
	timing.Start("tour_list")
	defer timing.Stop("tour_list")

	tours, err := d.tours(ctx, s)
	if err != nil {
		d.logStatus(request, store.StatusError, "RON tour read failed: "+err.Error(), "")
		requestsTotal.WithLabelValues(string(viator.KindTourList), "error").Inc()
		return request.TourListResponse(nil, errNothingReturned.response())
	}

	summaries := []viator.TourSummary{}
	for _, tour := range tours {
		summary, ok := d.tourSummary(ctx, s, tour.Code, tour.Name)
		if !ok {
			continue
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 0 {
		d.logStatus(request, store.StatusError, "No bookable tours returned", "")
		requestsTotal.WithLabelValues(string(viator.KindTourList), "error").Inc()
		return request.TourListResponse(nil, errNothingReturned.response())
	}

	d.logStatus(request, store.StatusCompleteAccepted, "", "")
	requestsTotal.WithLabelValues(string(viator.KindTourList), "success").Inc()
	return request.TourListResponse(summaries, nil)
}

// tourSummary assembles one tour entry. All three catalog reads must
// succeed and return data, otherwise the tour is dropped from the list.
func (d *Dispatcher) tourSummary(ctx context.Context, s *session, tourCode, tourName string) (viator.TourSummary, bool) {
	times, err := d.tourTimes(ctx, s, tourCode)
	if err != nil || len(times) == 0 {
		return viator.TourSummary{}, false
	}

	bases, err := d.tourBases(ctx, s, tourCode)
	if err != nil || len(bases) == 0 {
		return viator.TourSummary{}, false
	}

	details, err := d.tourWebDetails(ctx, s, tourCode)
	if err != nil || len(details) == 0 {
		return viator.TourSummary{}, false
	}

	summary := viator.TourSummary{
		Code:        tourCode,
		Name:        tourName,
		Description: detailText(details, "strTourDesc"),
	}

	for _, tourTime := range times {
		for _, basis := range bases {
			summary.Options = append(summary.Options, viator.TourOptionSummary{
				Basis: "B=" + basis.ID + ";S=" + basis.SubBasisID + ";T=" + tourTime.ID,
				Label: basis.Name + " " + tourTime.Name,
			})
		}
	}

	return summary, true
}

func detailText(details map[string]any, key string) string {
	if text, ok := details[key].(string); ok {
		return text
	}
	return ""
}
