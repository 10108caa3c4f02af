package lockbox

import (
	"context"
	"time"
)

// IdentityClaim is the decrypted, binding-checked tuple recovered from an
// access envelope. It is constructed at issuance, reconstructed at every
// verification, and discarded after the request.
//
//	Docs: docs/protocol.md
type IdentityClaim struct {
	UserID    string `json:"user_id"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"ua,omitempty"`
}

// Credentials is returned by [Engine.Issue] and [Engine.Refresh]. ExpiresAt
// is the absolute access-credential expiry for client display; the envelopes
// themselves carry the authoritative expiry.
type Credentials struct {
	AccessCredential  string
	RefreshCredential string
	ExpiresAt         time.Time
}

// UserDirectory is the interface callers must implement to integrate lockbox
// with their user database. Issuance confirms the user exists before any
// credential is minted; absence is an error, never silent user creation.
//
//	Docs: docs/engine.md
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}
