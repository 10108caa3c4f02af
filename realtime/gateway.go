// Package realtime admits long-lived connections with a stateless check of
// the access credential: envelope signature, payload decryption, and
// device-binding comparison, with no session store round-trip. A gateway
// process therefore needs only the key material, never a store connection.
//
// The trade-off is deliberate: a connection admitted here stays admitted for
// the remaining envelope lifetime even if the session record is replaced.
package realtime

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/teamforge/lockbox"
	"github.com/teamforge/lockbox/fingerprint"
)

// ErrNotAuthenticated is the single admission failure the gateway exposes.
// Missing signals, bad signatures, and device mismatches are all collapsed
// into it; the specific cause is logged, never returned.
var ErrNotAuthenticated = errors.New("realtime: not authenticated")

const bearerPrefix = "Bearer "

// Gateway defines a public type used by the realtime admission APIs.
//
// Gateway instances are intended to be configured during initialization and
// then treated as immutable. A Gateway is safe for unsynchronized concurrent
// use.
type Gateway struct {
	verifier *lockbox.AccessVerifier
	metrics  *lockbox.Metrics
	logger   zerolog.Logger
}

// NewGateway describes the newgateway operation and its observable behavior.
//
// metrics may be nil when the hosting process does not collect counters.
func NewGateway(verifier *lockbox.AccessVerifier, metrics *lockbox.Metrics, logger zerolog.Logger) (*Gateway, error) {
	if verifier == nil {
		return nil, errors.New("realtime: access verifier required")
	}
	return &Gateway{
		verifier: verifier,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// Admit decides whether a handshake request may open a real-time connection.
// All four signals must be present before verification is even attempted:
// the bearer credential, a user-agent, a resolvable client IP, and the
// session correlation header. Any absence or mismatch yields
// [ErrNotAuthenticated]; the returned claim identifies the admitted user.
func (g *Gateway) Admit(header http.Header, remoteAddr string) (*lockbox.IdentityClaim, error) {
	if g == nil {
		return nil, ErrNotAuthenticated
	}

	credential := bearerCredential(header)
	fp := fingerprint.Resolve(header, remoteAddr)

	if credential == "" || fp.UserAgent == "" || fp.SessionID == "" || fp.IP == fingerprint.UnknownIP {
		g.reject(fp, "missing handshake signal")
		return nil, ErrNotAuthenticated
	}

	claim, err := g.verifier.Check(credential, fp)
	if err != nil {
		g.reject(fp, err.Error())
		return nil, ErrNotAuthenticated
	}

	if g.metrics != nil {
		g.metrics.Inc(lockbox.MetricGatewayAdmitted)
	}
	g.logger.Info().
		Str("user_id", claim.UserID).
		Str("ip", fp.IP).
		Msg("connection admitted")

	return claim, nil
}

func (g *Gateway) reject(fp fingerprint.Fingerprint, cause string) {
	if g.metrics != nil {
		g.metrics.Inc(lockbox.MetricGatewayRejected)
	}
	g.logger.Warn().
		Str("ip", fp.IP).
		Str("session_ref", fp.SessionID).
		Str("cause", cause).
		Msg("connection rejected")
}

func bearerCredential(header http.Header) string {
	auth := strings.TrimSpace(header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	if !strings.HasPrefix(auth, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
}
