package lockbox

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/teamforge/lockbox/cipher"
	"github.com/teamforge/lockbox/envelope"
	"github.com/teamforge/lockbox/fingerprint"
)

// AccessVerifier is the stateless verification core shared by the HTTP tier
// and the real-time gateway: envelope signature, payload decryption, and
// device-binding comparison, with no store round-trip. Both tiers must
// consume this type rather than duplicating the chain, so the logic cannot
// drift between processes.
//
// An AccessVerifier is immutable after construction and safe for
// unsynchronized concurrent use.
type AccessVerifier struct {
	envelopes *envelope.Manager
	box       *cipher.Box
}

// NewAccessVerifier builds a verifier from the envelope and cipher sections
// of cfg. The store and directory sections are not consulted.
func NewAccessVerifier(cfg Config) (*AccessVerifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cloneConfig(cfg)

	em, err := envelope.NewManager(envelope.Config{
		AccessTTL:  cfg.Envelope.AccessTTL,
		RefreshTTL: cfg.Envelope.RefreshTTL,
		Secrets:    cfg.Envelope.SigningSecrets,
		Issuer:     cfg.Envelope.Issuer,
		Leeway:     cfg.Envelope.Leeway,
	})
	if err != nil {
		return nil, err
	}

	box, err := cipher.New(cfg.Cipher.Secret)
	if err != nil {
		return nil, err
	}

	return &AccessVerifier{envelopes: em, box: box}, nil
}

// Check verifies an access envelope against a live fingerprint and returns
// the identity claim. It surfaces the specific internal failure
// ([envelope.ErrInvalidEnvelope], [cipher.ErrMalformedPayload],
// [cipher.ErrDecryptionFailed], or [ErrDeviceMismatch]) for audit and tests;
// gateways coerce all of them to [ErrInvalidToken] before the result leaves
// the process boundary.
func (v *AccessVerifier) Check(env string, fp fingerprint.Fingerprint) (*IdentityClaim, error) {
	payload, err := v.envelopes.VerifyAccess(env)
	if err != nil {
		return nil, err
	}

	plain, err := v.box.Decrypt(payload)
	if err != nil {
		return nil, err
	}

	var claim IdentityClaim
	if err := json.Unmarshal(plain, &claim); err != nil {
		return nil, cipher.ErrMalformedPayload
	}

	// All three signals must match exactly; a single comparison result keeps
	// the failure mode uniform.
	ok := constantTimeEqual(claim.IP, fp.IP)
	ok = constantTimeEqual(claim.UserAgent, fp.UserAgent) && ok
	ok = constantTimeEqual(claim.UserID, fp.SessionID) && ok
	if !ok {
		return nil, ErrDeviceMismatch
	}

	return &claim, nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
