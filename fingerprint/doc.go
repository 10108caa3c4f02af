// Package fingerprint derives the per-request device identity used for
// binding comparison against decrypted identity claims.
//
// # Resolution order
//
// Client IP resolution walks proxy-forwarding headers in a fixed precedence:
// first hop of X-Forwarded-For, then X-Real-IP, then the transport peer
// address. When nothing resolves the IP is [UnknownIP] rather than an error:
// resolution fails closed so the downstream binding comparison produces a
// deterministic mismatch instead of an exception path.
//
// # User-agent normalization
//
// Whitespace runs are stripped from the user-agent string so cosmetic header
// rewriting by intermediaries does not break binding.
//
// Fingerprints are computed fresh per request or connection and never
// persisted.
package fingerprint
