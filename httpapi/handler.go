package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/teamforge/lockbox"
	"github.com/teamforge/lockbox/fingerprint"
	"github.com/teamforge/lockbox/internal/rate"
)

// Limiter is the throttle surface the handler consumes. Implemented by
// [rate.Limiter]; tests substitute their own.
type Limiter interface {
	Enforce(ctx context.Context, key string) error
	EnforceAll(ctx context.Context, keys []string) error
}

// Handler wires the engine's issuance and refresh operations to HTTP.
type Handler struct {
	engine     *lockbox.Engine
	limiter    Limiter
	cookie     lockbox.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     zerolog.Logger
}

// NewHandler describes the newhandler operation and its observable behavior.
//
// limiter may be nil; throttling is then disabled.
func NewHandler(engine *lockbox.Engine, cfg lockbox.Config, limiter Limiter, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:     engine,
		limiter:    limiter,
		cookie:     cfg.Cookie,
		accessTTL:  cfg.Envelope.AccessTTL,
		refreshTTL: cfg.Envelope.RefreshTTL,
		logger:     logger,
	}
}

// Router assembles the full middleware chain and route table.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger(h.logger))
	r.Use(DeviceSignals)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/token", h.handleToken)
		r.Post("/refresh", h.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(Guard(h.engine))
			r.Get("/session", h.handleSession)
			r.Delete("/session", h.handleLogout)
		})
	})

	return r
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type credentialResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	if h.limiter != nil {
		ip := fingerprint.ClientIP(r.Header, r.RemoteAddr)
		if err := h.limiter.EnforceAll(ctx, rate.IssueKeys(req.UserID, ip)); err != nil {
			writeThrottle(w, err)
			return
		}
	}

	creds, err := h.engine.Issue(ctx, req.UserID)
	switch {
	case err == nil:
	case errors.Is(err, lockbox.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	case errors.Is(err, lockbox.ErrUserNotFound):
		writeUnauthorized(w)
		return
	default:
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
		return
	}

	setCredentialCookies(w, h.cookie, creds, req.UserID, h.accessTTL, h.refreshTTL)
	writeJSON(w, http.StatusOK, credentialResponse{
		AccessToken:  creds.AccessCredential,
		RefreshToken: creds.RefreshCredential,
		ExpiresAt:    creds.ExpiresAt.Unix(),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	credential := cookieValue(r, RefreshCookie)
	if credential == "" {
		var req refreshRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8192)).Decode(&req); err == nil {
			credential = req.RefreshToken
		}
	}
	if credential == "" {
		writeUnauthorized(w)
		return
	}

	ctx := r.Context()

	if h.limiter != nil {
		if err := h.limiter.Enforce(ctx, rate.RefreshKey(credential)); err != nil {
			writeThrottle(w, err)
			return
		}
	}

	creds, err := h.engine.Refresh(ctx, credential)
	switch {
	case err == nil:
	case errors.Is(err, lockbox.ErrStoreUnavailable), errors.Is(err, lockbox.ErrDirectoryUnavailable):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
		return
	default:
		// Invalid, unknown, and replayed credentials are indistinguishable
		// to the caller.
		writeUnauthorized(w)
		return
	}

	sessionRef := cookieValue(r, SessionRefCookie)
	setCredentialCookies(w, h.cookie, creds, sessionRef, h.accessTTL, h.refreshTTL)
	writeJSON(w, http.StatusOK, credentialResponse{
		AccessToken:  creds.AccessCredential,
		RefreshToken: creds.RefreshCredential,
		ExpiresAt:    creds.ExpiresAt.Unix(),
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	claim, ok := ClaimFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": claim.UserID})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Cookie removal only. The envelope stays valid until expiry; the
	// session record dies with its TTL or the next issuance.
	clearCredentialCookies(w, h.cookie)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func writeThrottle(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrLimited) {
		writeError(w, http.StatusTooManyRequests, "rate limited")
		return
	}
	writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
}
