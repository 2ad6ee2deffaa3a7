package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS config (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS host_keys (
	host_id              TEXT PRIMARY KEY,
	comments             TEXT NOT NULL DEFAULT '',
	payment_option       TEXT,
	last_update_payment  TIMESTAMPTZ,
	clear_payment_option BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS audit_log (
	external_reference  TEXT PRIMARY KEY,
	status              TEXT NOT NULL,
	error_message       TEXT,
	confirmation_number TEXT,
	attempts            INT NOT NULL DEFAULT 0,
	modified_date       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres backs all three collaborator interfaces with one pgx pool.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("unable to ensure schema: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func (p *Postgres) Close() {
	p.db.Close()
}

func (p *Postgres) Value(ctx context.Context, name string) (string, error) {
	var value string
	err := p.db.QueryRow(ctx, "SELECT value FROM config WHERE name = $1", name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (p *Postgres) Find(ctx context.Context, hostID string) (*HostKey, error) {
	var key HostKey
	err := p.db.QueryRow(ctx,
		`SELECT host_id, comments, COALESCE(payment_option, ''), last_update_payment, clear_payment_option
		 FROM host_keys WHERE host_id = $1`,
		hostID,
	).Scan(&key.HostID, &key.Comments, &key.PaymentOption, &key.LastUpdatePayment, &key.ClearPaymentOption)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (p *Postgres) UpdatePaymentOption(ctx context.Context, hostID, option string, at time.Time) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE host_keys
		 SET payment_option = $2, last_update_payment = $3, clear_payment_option = FALSE
		 WHERE host_id = $1`,
		hostID, option, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, record Record) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO audit_log (external_reference, status, error_message, confirmation_number, attempts)
		 VALUES ($1, $2, $3, $4, 0)
		 ON CONFLICT (external_reference) DO UPDATE
		 SET status = EXCLUDED.status,
		     error_message = EXCLUDED.error_message,
		     confirmation_number = EXCLUDED.confirmation_number,
		     attempts = audit_log.attempts + 1,
		     modified_date = now()`,
		record.ExternalReference, record.Status, record.ErrorMessage, record.ConfirmationNumber,
	)
	return err
}
