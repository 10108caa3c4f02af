// Package httpapi exposes the issuance, refresh, and guard surface of the
// session engine over HTTP using chi.
//
// # Endpoints
//
//   - POST /auth/v1/token: mint a credential pair for a validated user.
//   - POST /auth/v1/refresh: rotate a pair using the refresh credential.
//
// Credentials travel as cookies by default; the guard also accepts a bearer
// Authorization header so non-browser clients can participate.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement protocol logic itself: verification, binding, and rotation
// decisions are delegated to the engine, and every engine rejection is
// flattened to a single 401 body.
//
// # What this package must NOT do
//
//   - Parse or create envelopes directly (delegates to the engine).
//   - Distinguish rejection causes in responses (audit log carries those).
//   - Enforce rate limits itself (an injected limiter decides).
package httpapi
