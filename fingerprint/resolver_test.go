package fingerprint

import (
	"net/http"
	"testing"
)

func TestClientIPPrecedence(t *testing.T) {
	h := http.Header{}
	h.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.Set("X-Real-IP", "198.51.100.2")

	if got := ClientIP(h, "192.0.2.9:4431"); got != "203.0.113.7" {
		t.Fatalf("expected first X-Forwarded-For hop, got %q", got)
	}

	h.Del("X-Forwarded-For")
	if got := ClientIP(h, "192.0.2.9:4431"); got != "198.51.100.2" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	h.Del("X-Real-IP")
	if got := ClientIP(h, "192.0.2.9:4431"); got != "192.0.2.9" {
		t.Fatalf("expected transport peer host, got %q", got)
	}
}

func TestClientIPFailsClosedToUnknown(t *testing.T) {
	if got := ClientIP(http.Header{}, ""); got != UnknownIP {
		t.Fatalf("expected %q, got %q", UnknownIP, got)
	}
	h := http.Header{}
	h.Set("X-Forwarded-For", "   ")
	if got := ClientIP(h, ""); got != UnknownIP {
		t.Fatalf("expected %q for blank forwarding header, got %q", UnknownIP, got)
	}
}

func TestClientIPBarePeerAddress(t *testing.T) {
	if got := ClientIP(http.Header{}, "192.0.2.9"); got != "192.0.2.9" {
		t.Fatalf("expected bare peer address, got %q", got)
	}
}

func TestNormalizeUserAgentStripsWhitespaceRuns(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Mozilla/5.0 (X11; Linux)  Gecko", "Mozilla/5.0(X11;Linux)Gecko"},
		{"  Agent/1.0  ", "Agent/1.0"},
		{"Agent/1.0\t(tabs\tinside)", "Agent/1.0(tabsinside)"},
		{"", ""},
		{"already-compact", "already-compact"},
	}
	for _, tc := range cases {
		if got := NormalizeUserAgent(tc.in); got != tc.want {
			t.Fatalf("NormalizeUserAgent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveCollectsAllSignals(t *testing.T) {
	h := http.Header{}
	h.Set("X-Forwarded-For", "10.0.0.1")
	h.Set("User-Agent", "Agent/1.0 extra")
	h.Set(SessionRefHeader, " u1 ")

	fp := Resolve(h, "192.0.2.9:1234")
	if fp.IP != "10.0.0.1" {
		t.Fatalf("ip: got %q", fp.IP)
	}
	if fp.UserAgent != "Agent/1.0extra" {
		t.Fatalf("ua: got %q", fp.UserAgent)
	}
	if fp.SessionID != "u1" {
		t.Fatalf("session id: got %q", fp.SessionID)
	}
}
