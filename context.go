package lockbox

import (
	"context"

	"github.com/teamforge/lockbox/fingerprint"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type sessionRefContextKey struct{}

// WithClientIP attaches the caller's resolved IP address to ctx. The Engine
// uses it for device binding at issuance and verification.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the normalized HTTP User-Agent string to ctx. Used
// for device binding at issuance and verification.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithSessionRef attaches the caller-supplied session correlation id to ctx.
// Verification requires it to equal the user id inside the access envelope.
func WithSessionRef(ctx context.Context, sessionRef string) context.Context {
	return context.WithValue(ctx, sessionRefContextKey{}, sessionRef)
}

// WithFingerprint attaches all three fingerprint signals at once.
func WithFingerprint(ctx context.Context, fp fingerprint.Fingerprint) context.Context {
	ctx = WithClientIP(ctx, fp.IP)
	ctx = WithUserAgent(ctx, fp.UserAgent)
	return WithSessionRef(ctx, fp.SessionID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func sessionRefFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ref, _ := ctx.Value(sessionRefContextKey{}).(string)
	return ref
}

func fingerprintFromContext(ctx context.Context) fingerprint.Fingerprint {
	ip := clientIPFromContext(ctx)
	if ip == "" {
		ip = fingerprint.UnknownIP
	}
	return fingerprint.Fingerprint{
		IP:        ip,
		UserAgent: userAgentFromContext(ctx),
		SessionID: sessionRefFromContext(ctx),
	}
}
