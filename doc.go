// Package lockbox provides a device-bound session credential engine: it
// mints encrypted, signed access/refresh credential pairs, binds them to the
// issuing device's network fingerprint, and verifies them consistently across
// independently-deployed tiers.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// lockbox is the public surface. It exposes [Engine], [Builder], [Config],
// [AccessVerifier], and value types (Credentials, IdentityClaim,
// MetricsSnapshot). The cipher, envelope, and fingerprint primitives live in
// their own subpackages so the HTTP tier and the real-time gateway share the
// exact same verification logic without sharing a process.
//
// # What this package must NOT do
//
//   - Expose store clients or key material in its public API.
//   - Distinguish verification failure causes to external callers; the
//     specific cause is audited internally only.
//   - Perform background work: no timers, no sweeps, no retries. TTLs are
//     enforced by comparison at the moment of use.
package lockbox
