package store

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned when no current record matches a lookup.
var ErrRecordNotFound = errors.New("session record not found")

// ErrUnavailable wraps backend transport failures.
var ErrUnavailable = errors.New("session store unavailable")

// Record is the persisted session state for one user. Writing a record for a
// user replaces any prior record for that user: issuing or refreshing on one
// device silently invalidates every other device's session.
type Record struct {
	UserID            string
	AccessCredential  string
	RefreshCredential string

	// Payload is the encrypted identity payload persisted at issuance so the
	// refresh path can recover the user id without re-verifying the stored
	// (possibly expired) access envelope.
	Payload string

	ExpiresAt time.Time
}

// Store defines persistence for session records.
type Store interface {
	// Upsert atomically replaces the record for rec.UserID.
	Upsert(ctx context.Context, rec Record) error

	// FindByRefreshCredential returns the record whose current refresh
	// credential equals the presented value, or [ErrRecordNotFound]. A
	// superseded credential is indistinguishable from one never issued.
	FindByRefreshCredential(ctx context.Context, refresh string) (*Record, error)
}
