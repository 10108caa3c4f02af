package httpapi

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teamforge/lockbox"
	"github.com/teamforge/lockbox/fingerprint"
)

type claimContextKey struct{}
type requestIDContextKey struct{}

// RequestIDHeader carries the per-request correlation id on responses.
const RequestIDHeader = "X-Request-Id"

// ClaimFromContext returns the identity claim the guard stored for an
// authenticated request.
func ClaimFromContext(ctx context.Context) (*lockbox.IdentityClaim, bool) {
	claim, ok := ctx.Value(claimContextKey{}).(*lockbox.IdentityClaim)
	return claim, ok
}

// RequestIDFromContext returns the request correlation id, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// RequestID assigns each request a UUID, echoes it on the response, and
// stores it in the request context for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceSignals resolves the caller's fingerprint once per request and
// attaches it to the context for the engine. The session correlation id is
// read from the X-Session-Ref header with the session_ref cookie as
// fallback, so browser clients work without custom headers.
func DeviceSignals(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp := fingerprint.Resolve(r.Header, r.RemoteAddr)
		if fp.SessionID == "" {
			fp.SessionID = cookieValue(r, SessionRefCookie)
		}

		ctx := lockbox.WithFingerprint(r.Context(), fp)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Guard rejects requests whose access credential does not verify against the
// caller's live fingerprint. The credential is read from the Authorization
// bearer header with the auth_token cookie as fallback. On success the
// identity claim is stored in the request context.
//
// [DeviceSignals] must run earlier in the chain.
func Guard(engine *lockbox.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnauthorized(w)
				return
			}

			credential, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				credential = cookieValue(r, AccessCookie)
			}
			if credential == "" {
				writeUnauthorized(w)
				return
			}

			claim, err := engine.VerifyAccess(r.Context(), credential)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimContextKey{}, claim)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Str("request_id", RequestIDFromContext(r.Context())).
				Msg("request")
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) <= len(bearer) || value[:len(bearer)] != bearer {
		return "", false
	}
	return value[len(bearer):], true
}
