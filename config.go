package lockbox

import (
	"errors"
	"net/http"
	"time"

	"github.com/teamforge/lockbox/cipher"
)

// Config defines a public type used by the lockbox engine APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise. Key material is
// never mutated after [Builder.Build]; concurrent reads from any number of
// verifier call sites are safe without synchronization.
type Config struct {
	Envelope EnvelopeConfig
	Cipher   CipherConfig
	Cookie   CookieConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
ENVELOPE CONFIG
====================================
*/

// EnvelopeConfig defines a public type used by the lockbox engine APIs.
//
// EnvelopeConfig instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type EnvelopeConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SigningSecrets is the ordered verification candidate list. The first
	// secret signs all new envelopes. Running two entries lets a secret be
	// rotated without invalidating envelopes signed by the outgoing one.
	SigningSecrets [][]byte

	Issuer string
	Leeway time.Duration
}

// CipherConfig defines a public type used by the lockbox engine APIs.
//
// The cipher secret occupies a distinct key space from the signing secrets;
// the two must never share bytes.
type CipherConfig struct {
	Secret []byte
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the cookie attributes the HTTP tier applies when it
// sets credentials.
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// AuditConfig defines a public type used by the lockbox engine APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by the lockbox engine APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: 1 hour access TTL,
// 7 day refresh TTL, strict same-site cookies. Secrets must still be set.
func DefaultConfig() Config {
	return Config{
		Envelope: EnvelopeConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "lockbox",
		},
		Cookie: CookieConfig{
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when TTLs, secrets, or cookie policy are
// inconsistent with the protocol's requirements.
func (c *Config) Validate() error {
	if c.Envelope.AccessTTL <= 0 {
		return errors.New("Envelope.AccessTTL must be positive")
	}
	if c.Envelope.RefreshTTL <= 0 {
		return errors.New("Envelope.RefreshTTL must be positive")
	}
	if c.Envelope.RefreshTTL < c.Envelope.AccessTTL {
		return errors.New("Envelope.RefreshTTL must not be shorter than AccessTTL")
	}
	if len(c.Envelope.SigningSecrets) == 0 {
		return errors.New("Envelope.SigningSecrets requires at least one secret")
	}
	for _, s := range c.Envelope.SigningSecrets {
		if len(s) < 16 {
			return errors.New("Envelope signing secrets must be at least 16 bytes")
		}
	}
	if len(c.Cipher.Secret) != cipher.KeySize {
		return errors.New("Cipher.Secret must be exactly 32 bytes")
	}
	for _, s := range c.Envelope.SigningSecrets {
		if bytesEqual(s, c.Cipher.Secret) {
			return errors.New("Cipher.Secret must not be reused as a signing secret")
		}
	}
	if c.Envelope.Leeway < 0 || c.Envelope.Leeway > 2*time.Minute {
		return errors.New("Envelope.Leeway out of range")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Envelope.SigningSecrets = make([][]byte, len(cfg.Envelope.SigningSecrets))
	for i, s := range cfg.Envelope.SigningSecrets {
		out.Envelope.SigningSecrets[i] = cloneBytes(s)
	}
	out.Cipher.Secret = cloneBytes(cfg.Cipher.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
