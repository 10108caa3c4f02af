// Package store persists session records: one record per user, replaced
// wholesale on every issuance or rotation.
//
// # Consistency contract
//
// Upsert-by-user is the protocol's serialization point. A backend must apply
// each Upsert as an atomic record replacement with read-your-writes
// consistency for the same user id; no other guarantee is required. Two
// backends ship here: Redis (Lua-scripted replacement plus a refresh-credential
// index) and Postgres (ON CONFLICT upsert).
//
// # What this package must NOT do
//
//   - Inspect or verify credentials. Records are opaque strings here.
//   - Expire anything actively. TTLs exist only so abandoned records are
//     garbage-collected; enforcement happens at envelope verification.
package store
