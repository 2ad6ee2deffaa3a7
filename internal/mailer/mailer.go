package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Notifier sends operator notifications. The only caller is the payment
// option rotation fallback; delivery failures are logged by the caller and
// never affect the partner response. An empty recipient list falls back to
// the sender's configured default.
type Notifier interface {
	Notify(ctx context.Context, to []string, subject, body string) error
}

type SMTP struct {
	Addr string
	From string
	To   []string
	Auth smtp.Auth
}

func NewSMTP(addr, from string, to []string, auth smtp.Auth) *SMTP {
	return &SMTP{Addr: addr, From: from, To: to, Auth: auth}
}

func (s *SMTP) Notify(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		to = s.To
	}
	if len(to) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}

	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, strings.Join(to, ", "), subject, body,
	)

	return smtp.SendMail(s.Addr, s.Auth, s.From, to, []byte(message))
}

// Noop is used when no mailer is configured and by tests.
type Noop struct{}

func (Noop) Notify(context.Context, []string, string, string) error { return nil }
