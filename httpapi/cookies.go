package httpapi

import (
	"net/http"
	"time"

	"github.com/teamforge/lockbox"
)

const (
	// AccessCookie holds the access envelope. HttpOnly.
	AccessCookie = "auth_token"
	// RefreshCookie holds the refresh envelope. HttpOnly.
	RefreshCookie = "refresh_token"
	// SessionRefCookie holds the session correlation id. Deliberately not
	// HttpOnly: client script must be able to echo it on real-time
	// handshakes via the X-Session-Ref header.
	SessionRefCookie = "session_ref"
)

func setCredentialCookies(w http.ResponseWriter, cfg lockbox.CookieConfig, creds *lockbox.Credentials, sessionRef string, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookie,
		Value:    creds.AccessCredential,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    creds.RefreshCredential,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	// A header-only client may refresh without the correlation cookie;
	// re-setting it to "" would unbind later cookie-based verification.
	if sessionRef != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionRefCookie,
			Value:    sessionRef,
			Path:     "/",
			Domain:   cfg.Domain,
			MaxAge:   int(refreshTTL.Seconds()),
			HttpOnly: false,
			Secure:   cfg.Secure,
			SameSite: cfg.SameSite,
		})
	}
}

func clearCredentialCookies(w http.ResponseWriter, cfg lockbox.CookieConfig) {
	for _, name := range []string{AccessCookie, RefreshCookie, SessionRefCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cfg.Domain,
			MaxAge:   -1,
			HttpOnly: name != SessionRefCookie,
			Secure:   cfg.Secure,
			SameSite: cfg.SameSite,
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
