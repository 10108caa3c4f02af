// Package cipher provides the symmetric payload cipher used for identity
// claims embedded in access envelopes.
//
// # Blob format
//
// Encrypt produces "ivHex:ciphertextHex": a fresh random 16-byte IV and the
// AES-256-CBC ciphertext, both lowercase hex, joined by a single colon. The
// IV is drawn from crypto/rand on every call; the same IV is never reused for
// the key. Decrypt accepts exactly this shape and nothing else.
//
// # Error contract
//
//   - [ErrMalformedPayload]: the blob cannot be split into exactly two
//     non-empty hex segments. This is a shape error, not a key error.
//   - [ErrDecryptionFailed]: the segments decode but the ciphertext length
//     or padding is invalid under the configured key.
//
// Callers that face the network must coerce both into their generic
// unauthenticated outcome; the distinction exists for tests and audit only.
//
// # What this package must NOT do
//
//   - Perform I/O or touch any store.
//   - Hold mutable state: a Box is immutable after New and safe for
//     unsynchronized concurrent use.
package cipher
