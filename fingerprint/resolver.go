package fingerprint

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIP is the fail-closed IP value used when no source resolves.
const UnknownIP = "unknown"

// SessionRefHeader carries the caller-supplied session correlation id on
// real-time handshakes and header-based HTTP callers.
const SessionRefHeader = "X-Session-Ref"

// Fingerprint is the live device/network signature for one request. It is
// used only for equality comparison against an identity claim.
type Fingerprint struct {
	IP        string
	UserAgent string
	SessionID string
}

// Resolve computes a Fingerprint from a request's headers and transport peer
// address. Resolve never fails: absent signals resolve to their zero value
// and the IP falls back to [UnknownIP].
func Resolve(header http.Header, remoteAddr string) Fingerprint {
	return Fingerprint{
		IP:        ClientIP(header, remoteAddr),
		UserAgent: NormalizeUserAgent(header.Get("User-Agent")),
		SessionID: strings.TrimSpace(header.Get(SessionRefHeader)),
	}
}

// ClientIP resolves the caller's IP with the documented precedence:
// X-Forwarded-For first hop, X-Real-IP, transport peer, [UnknownIP].
func ClientIP(header http.Header, remoteAddr string) string {
	if xff := strings.TrimSpace(header.Get("X-Forwarded-For")); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}

	if real := strings.TrimSpace(header.Get("X-Real-IP")); real != "" {
		return real
	}

	if host := peerHost(remoteAddr); host != "" {
		return host
	}

	return UnknownIP
}

// NormalizeUserAgent strips whitespace runs from a user-agent string.
func NormalizeUserAgent(ua string) string {
	return strings.Join(strings.Fields(ua), "")
}

func peerHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	// Peer address without a port (some proxies hand us a bare IP).
	return remoteAddr
}
