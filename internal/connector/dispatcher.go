package connector

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/vron/connector-hub/internal/auditlog"
	"bitbucket.org/vron/connector-hub/internal/mailer"
	"bitbucket.org/vron/connector-hub/internal/ron"
	"bitbucket.org/vron/connector-hub/internal/store"
	"bitbucket.org/vron/connector-hub/internal/tools/caching"
	"bitbucket.org/vron/connector-hub/internal/viator"
	"bitbucket.org/vron/connector-hub/internal/xmldoc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_requests_total",
		Help: "Partner requests processed, labeled by kind and outcome",
	}, []string{"kind", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connector_request_duration_seconds",
		Help:    "End-to-end request latency including backend calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})
)

type Options struct {
	Configs  store.Configs
	HostKeys store.HostKeys
	Audit    *auditlog.Sink
	Notifier mailer.Notifier
	Cache    *caching.Cacher
	Mode     ron.Mode
	// Backends overrides the RON client constructor in tests.
	Backends BackendFactory
	// Now is swapped out by payment rotation tests.
	Now func() time.Time
}

// Dispatcher owns the end-to-end flow for one inbound partner request:
// validate, authenticate, apply business rules, call RON, log, respond.
type Dispatcher struct {
	configs  store.Configs
	hostKeys store.HostKeys
	audit    *auditlog.Sink
	notifier mailer.Notifier
	cache    *caching.Cacher
	mode     ron.Mode
	backends BackendFactory
	now      func() time.Time
}

func New(options Options) *Dispatcher {
	backends := options.Backends
	if backends == nil {
		backends = defaultBackendFactory
	}

	notifier := options.Notifier
	if notifier == nil {
		notifier = mailer.Noop{}
	}

	now := options.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		configs:  options.Configs,
		hostKeys: options.HostKeys,
		audit:    options.Audit,
		notifier: notifier,
		cache:    options.Cache,
		mode:     options.Mode,
		backends: backends,
		now:      now,
	}
}

// Handle processes one raw request body and always returns a well-formed
// XML response.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte, logger *zerolog.Logger) []byte {
	doc := xmldoc.Parse(raw)
	if !doc.Validated {
		requestsTotal.WithLabelValues("invalid", "error").Inc()
		return viator.ErrorResponse("Response", &viator.RequestError{
			Code:    errMalformed.code,
			Message: doc.ErrorMessage,
		})
	}

	kind := viator.KindOf(doc.RootTag())
	if kind == "" {
		requestsTotal.WithLabelValues("unsupported", "error").Inc()
		return viator.ErrorResponse("Response", &viator.RequestError{
			Message: "Unsupported request " + doc.RootTag(),
		})
	}

	timer := prometheus.NewTimer(requestDuration.WithLabelValues(string(kind)))
	defer timer.ObserveDuration()

	request := viator.ParseRequest(doc)

	var response []byte
	switch kind {
	case viator.KindBooking:
		response = d.booking(ctx, request, logger)
	case viator.KindAvailability:
		response = d.availability(ctx, request, logger)
	case viator.KindTourList:
		response = d.tourList(ctx, request, logger)
	case viator.KindBatchAvailability:
		// recognized but not offered to partners yet
		requestsTotal.WithLabelValues(string(kind), "error").Inc()
		return viator.ErrorResponse("BatchAvailabilityResponse", &viator.RequestError{
			Message: "BatchAvailabilityRequest is not supported",
		})
	}

	return response
}

// session is the per-request state shared by the kind-specific flows once
// the common validate/authenticate steps have passed.
type session struct {
	request *viator.Request
	hostID  string
	hostKey *store.HostKey
	backend Backend
	logger  *zerolog.Logger
}

// prepare runs the steps every request kind shares: audit "Pending", the
// required-field check, API key validation and RON login. A non-nil
// RequestError short-circuits to the response.
func (d *Dispatcher) prepare(ctx context.Context, request *viator.Request, logger *zerolog.Logger) (*session, *viator.RequestError) {
	d.logStatus(request, store.StatusPending, "", "")

	if tag, ok := request.CheckRequiredData(); !ok {
		d.logStatus(request, store.StatusError, "Missing required field "+tag, "")
		return nil, errMalformed.withTag(tag)
	}

	hostID, ok := d.hostIDFromKey(ctx, request.APIKey)
	if !ok {
		d.logStatus(request, store.StatusError, "Invalid API key "+request.APIKey, "")
		return nil, errInvalidAPIKey.withTag("ApiKey")
	}

	hostKey, err := d.hostKeys.Find(ctx, hostID)
	if err != nil {
		d.logStatus(request, store.StatusError, "Invalid API key "+request.APIKey, "")
		return nil, errInvalidAPIKey.withTag("ApiKey")
	}

	backend := d.backends(ron.Options{
		Username: d.configValue(ctx, store.ConfigRonUsername, ""),
		Password: d.configValue(ctx, store.ConfigRonPassword, ""),
		TestURL:  d.configValue(ctx, store.ConfigRonTestURL, ""),
		LiveURL:  d.configValue(ctx, store.ConfigRonLiveURL, ""),
		Mode:     d.mode,
	}, logger)
	backend.SetHostID(hostID)

	if err := backend.Login(ctx, request.DistributorID); err != nil {
		d.logStatus(request, store.StatusError, "RON login failed: "+backend.FaultMessage(), "")
		return nil, errBackendAuth.withTag("ResellerId")
	}

	return &session{
		request: request,
		hostID:  hostID,
		hostKey: hostKey,
		backend: backend,
		logger:  logger,
	}, nil
}

// hostIDFromKey strips the configured base prefix from the presented key to
// recover the host id.
func (d *Dispatcher) hostIDFromKey(ctx context.Context, apiKey string) (string, bool) {
	basePrefix, err := d.configs.Value(ctx, store.ConfigBaseAPIKey)
	if err != nil || basePrefix == "" {
		return "", false
	}

	if !strings.HasPrefix(apiKey, basePrefix) {
		return "", false
	}

	hostID := strings.TrimPrefix(apiKey, basePrefix)
	if hostID == "" {
		return "", false
	}
	return hostID, true
}

// logStatus ships an audit record to the background sink. Never blocks and
// never fails the request.
func (d *Dispatcher) logStatus(request *viator.Request, status, errorMessage, confirmationNumber string) {
	if d.audit == nil {
		return
	}

	d.audit.Log(store.Record{
		ExternalReference:  request.ExternalReference,
		Status:             status,
		ErrorMessage:       errorMessage,
		ConfirmationNumber: confirmationNumber,
	})
}

func (d *Dispatcher) configValue(ctx context.Context, name, fallback string) string {
	value, err := d.configs.Value(ctx, name)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

func (d *Dispatcher) configInt(ctx context.Context, name string, fallback int) int {
	value, err := d.configs.Value(ctx, name)
	if err != nil {
		return fallback
	}
	number, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return number
}

// pickupMandatory classifies a writeReservation fault as the retriable
// "pickup is mandatory" case. The backend's fault vocabulary is not
// authoritative, so the marker tokens are configurable; every token must
// appear in the fault text.
func (d *Dispatcher) pickupMandatory(ctx context.Context, err error) bool {
	var fault *ron.Fault
	if !errors.As(err, &fault) {
		return false
	}

	marker := d.configValue(ctx, store.ConfigPickupFaultMarker, "pickup;mandatory")
	faultText := strings.ToLower(fault.Message)
	for _, token := range strings.Split(marker, ";") {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		if !strings.Contains(faultText, token) {
			return false
		}
	}
	return true
}
