package connector

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/vron/connector-hub/internal/store"
)

const defaultRotationDays = 7

// rotatePaymentOption returns the payment option to book with. A fresh
// stored option is reused as-is; a stale one (operator-cleared, never set,
// or older than the rotation window) is re-derived from the backend's
// current offering intersected with the configured allow-list, then
// persisted. When the intersection is empty or the backend read fails, the
// configured default is used and operations gets a heads-up.
func (d *Dispatcher) rotatePaymentOption(ctx context.Context, s *session) string {
	key := s.hostKey

	stale := key.ClearPaymentOption || key.LastUpdatePayment == nil
	if !stale {
		days := d.configInt(ctx, store.ConfigPaymentRotationDays, defaultRotationDays)
		age := d.now().Sub(*key.LastUpdatePayment)
		stale = age >= time.Duration(days)*24*time.Hour
	}
	if !stale && key.PaymentOption != "" {
		return key.PaymentOption
	}

	option := d.derivePaymentOption(ctx, s)

	if err := d.hostKeys.UpdatePaymentOption(ctx, s.hostID, option, d.now()); err != nil {
		s.logger.Warn().Err(err).Str("host_id", s.hostID).Msg("could not persist payment option")
	}

	return option
}

func (d *Dispatcher) derivePaymentOption(ctx context.Context, s *session) string {
	fallback := d.configValue(ctx, store.ConfigDefaultPaymentOption, "")

	offered, err := s.backend.PaymentOptions(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("host_id", s.hostID).Msg("payment options read failed")
		d.notifyPaymentFallback(ctx, s, fallback)
		return fallback
	}

	allowed := d.allowedPaymentOptions(ctx)
	for _, option := range offered {
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(option))]; ok {
			return option
		}
	}

	d.notifyPaymentFallback(ctx, s, fallback)
	return fallback
}

func (d *Dispatcher) allowedPaymentOptions(ctx context.Context) map[string]struct{} {
	allowed := map[string]struct{}{}
	for _, option := range strings.Split(d.configValue(ctx, store.ConfigPaymentOptions, ""), ";") {
		option = strings.ToLower(strings.TrimSpace(option))
		if option != "" {
			allowed[option] = struct{}{}
		}
	}
	return allowed
}

func (d *Dispatcher) notifyPaymentFallback(ctx context.Context, s *session, fallback string) {
	subject := "Payment option fallback for host " + s.hostID
	body := "None of the payment options offered by RON for host " + s.hostID +
		" matched the configured list. Bookings proceed with the default option '" +
		fallback + "' until this is resolved."
	if err := d.notifier.Notify(ctx, d.notifyRecipients(ctx), subject, body); err != nil {
		s.logger.Warn().Err(err).Msg("payment fallback notification failed")
	}
}

// notifyRecipients reads the operator addresses from configuration. An
// empty result leaves the choice to the notifier's own default.
func (d *Dispatcher) notifyRecipients(ctx context.Context) []string {
	var recipients []string
	for _, address := range strings.Split(d.configValue(ctx, store.ConfigNotifyEmail, ""), ";") {
		address = strings.TrimSpace(address)
		if address != "" {
			recipients = append(recipients, address)
		}
	}
	return recipients
}
