package store

import (
	"context"
	"errors"
	"time"
)

// Configuration option names persisted by the admin side and read here.
const (
	ConfigRonUsername          = "ron_username"
	ConfigRonPassword          = "ron_password"
	ConfigRonTestURL           = "ron_test_url"
	ConfigRonLiveURL           = "ron_live_url"
	ConfigBaseAPIKey           = "base_api_key"
	ConfigPaymentOptions       = "payment_options"
	ConfigPaymentRotationDays  = "payment_rotation_days"
	ConfigDefaultPaymentOption = "default_payment_option"
	ConfigNotifyEmail          = "notify_email"
	ConfigPickupFaultMarker    = "ron_pickup_fault_marker"
)

// Audit statuses. Transitions are monotonic within one request lifecycle:
// Pending is always written first, exactly one final status follows.
const (
	StatusPending          = "Pending"
	StatusCompleteAccepted = "Complete-Accepted"
	StatusCompleteRejected = "Complete-Rejected"
	StatusError            = "Error"
)

var ErrNotFound = errors.New("not found")

type Configs interface {
	// Value returns the configured value for name, ErrNotFound when unset.
	Value(ctx context.Context, name string) (string, error)
}

// HostKey is one issued partner key, presented on the wire as
// base prefix + host id. Payment option state is mutated by the
// rotation rule only.
type HostKey struct {
	HostID             string
	Comments           string
	PaymentOption      string
	LastUpdatePayment  *time.Time
	ClearPaymentOption bool
}

type HostKeys interface {
	Find(ctx context.Context, hostID string) (*HostKey, error)
	// UpdatePaymentOption persists a rotation result and resets
	// ClearPaymentOption.
	UpdatePaymentOption(ctx context.Context, hostID, option string, at time.Time) error
}

// Record is one audit log entry keyed by the partner's external reference.
type Record struct {
	ExternalReference  string
	Status             string
	ErrorMessage       string
	ConfirmationNumber string
}

type AuditLog interface {
	// Upsert creates the record with attempts=0 on first write and
	// increments attempts on every later write for the same reference.
	Upsert(ctx context.Context, record Record) error
}
