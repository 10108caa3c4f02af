// Package envelope signs and verifies the time-bounded containers that carry
// encrypted identity payloads between tiers.
//
// # Envelope kinds
//
// Two kinds are issued. An access envelope embeds the encrypted payload blob
// in its "data" claim and carries a short TTL. A refresh envelope embeds
// nothing and carries a long TTL; it is validated purely by presence as a key
// into the session record store.
//
// # Key rotation
//
// Verification walks an ordered candidate secret list and short-circuits on
// the first success. The first secret always signs. Running with two
// candidates allows a secret to be rotated with zero verification downtime.
//
// # Oracle prevention
//
// Every verification failure (bad signature, expired, wrong key, wrong
// shape) collapses into the single [ErrInvalidEnvelope]. Callers must not be
// able to distinguish the cases.
package envelope
