package envelope

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidEnvelope is the single undifferentiated verification failure.
// Expired, forged, and wrong-key envelopes are deliberately indistinguishable.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// Config defines a public type used by the lockbox engine APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Secrets is the ordered candidate list. Secrets[0] signs every new
	// envelope; all entries are tried during verification, in order.
	Secrets [][]byte

	Issuer string
	Leeway time.Duration
}

// Manager signs and verifies envelopes. A Manager is immutable after
// NewManager and safe for unsynchronized concurrent use.
type Manager struct {
	config Config
}

type accessClaims struct {
	Data string `json:"data"`
	jwt.RegisteredClaims
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when the TTLs are not positive or the
// candidate secret list is empty or contains an empty secret.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secrets) == 0 {
		return nil, errors.New("at least one signing secret required")
	}
	for _, s := range cfg.Secrets {
		if len(s) == 0 {
			return nil, errors.New("signing secret must not be empty")
		}
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// SignAccess wraps an encrypted payload blob in an access envelope with the
// configured access TTL, signed by the primary secret.
func (m *Manager) SignAccess(payload string) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Data: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secrets[0])
}

// SignRefresh mints a refresh envelope with the configured refresh TTL. It
// carries no identity payload: the signed string itself is the credential,
// matched against the session record store at refresh time. The jti claim
// makes every envelope unique; the timestamps alone have whole-second
// resolution, so without it two envelopes minted in the same second under
// the same key would be byte-identical.
func (m *Manager) SignRefresh() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    m.config.Issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secrets[0])
}

// VerifyAccess verifies an access envelope against the candidate secrets and
// returns the embedded payload blob. Any failure is [ErrInvalidEnvelope].
func (m *Manager) VerifyAccess(envelope string) (string, error) {
	var claims accessClaims
	if err := m.verify(envelope, &claims); err != nil {
		return "", err
	}
	if claims.Data == "" {
		return "", ErrInvalidEnvelope
	}
	return claims.Data, nil
}

// VerifyRefresh verifies a refresh envelope's signature and expiry. The
// store lookup that makes a refresh credential current happens elsewhere.
func (m *Manager) VerifyRefresh(envelope string) error {
	var claims jwt.RegisteredClaims
	return m.verify(envelope, &claims)
}

func (m *Manager) verify(envelope string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	parser := jwt.NewParser(options...)

	for _, secret := range m.config.Secrets {
		key := secret
		token, err := parser.ParseWithClaims(envelope, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err == nil && token.Valid {
			return nil
		}
	}

	return ErrInvalidEnvelope
}
