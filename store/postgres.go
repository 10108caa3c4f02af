package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the Postgres backend. The primary key on user_id is
// what makes Upsert the single-active-session serialization point.
const Schema = `
CREATE TABLE IF NOT EXISTS session_records (
	user_id            TEXT PRIMARY KEY,
	access_credential  TEXT NOT NULL,
	refresh_credential TEXT NOT NULL,
	payload            TEXT NOT NULL,
	expires_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS session_records_refresh_idx
	ON session_records (refresh_credential);
`

// PostgresStore is a [Store] backed by Postgres via pgx. It is safe for
// concurrent use; the pool handles connection lifecycle.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Postgres-backed store using the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Upsert atomically replaces the record for rec.UserID. ON CONFLICT makes
// the row replacement atomic; concurrent writers serialize at the row and
// the last write wins.
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO session_records (user_id, access_credential, refresh_credential, payload, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
	access_credential  = EXCLUDED.access_credential,
	refresh_credential = EXCLUDED.refresh_credential,
	payload            = EXCLUDED.payload,
	expires_at         = EXCLUDED.expires_at`

	_, err := s.pool.Exec(ctx, q,
		rec.UserID, rec.AccessCredential, rec.RefreshCredential, rec.Payload, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FindByRefreshCredential returns the record currently holding the presented
// refresh credential, or [ErrRecordNotFound] for missing rows. It returns a
// wrapped [ErrUnavailable] only for database failures, not for missing rows.
func (s *PostgresStore) FindByRefreshCredential(ctx context.Context, refresh string) (*Record, error) {
	const q = `
SELECT user_id, access_credential, refresh_credential, payload, expires_at
FROM session_records
WHERE refresh_credential = $1`

	var rec Record
	err := s.pool.QueryRow(ctx, q, refresh).Scan(
		&rec.UserID, &rec.AccessCredential, &rec.RefreshCredential, &rec.Payload, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &rec, nil
}
