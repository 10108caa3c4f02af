package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session records live under <prefix>:sess:<user_id> as hashes. A reverse
// index <prefix>:ref:<sha256(refresh)> -> user_id serves the refresh lookup.
// The replacement script drops the superseded index entry in the same call,
// so a rotated-out refresh credential can never resolve again.
const upsertScript = `
local old = redis.call("HGET", KEYS[1], "refresh_sha")
if old and old ~= ARGV[6] then
  redis.call("DEL", ARGV[7] .. old)
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1],
  "user_id", ARGV[1],
  "access", ARGV[2],
  "refresh", ARGV[3],
  "payload", ARGV[4],
  "expires_at", ARGV[5],
  "refresh_sha", ARGV[6])
redis.call("PEXPIRE", KEYS[1], ARGV[8])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[8])
return 1
`

var upsertLua = redis.NewScript(upsertScript)

// RedisStore is a [Store] backed by Redis. It is safe for concurrent use.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	recordTTL time.Duration
}

// NewRedisStore returns a Redis-backed store. recordTTL bounds how long an
// abandoned record survives; it should not be shorter than the refresh TTL.
func NewRedisStore(client redis.UniversalClient, prefix string, recordTTL time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "lockbox"
	}
	if recordTTL <= 0 {
		recordTTL = 7 * 24 * time.Hour
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		recordTTL: recordTTL,
	}
}

// Upsert describes the upsert operation and its observable behavior.
//
// Upsert atomically replaces the record for rec.UserID, dropping the prior
// refresh-credential index entry in the same script invocation.
func (s *RedisStore) Upsert(ctx context.Context, rec Record) error {
	sha := refreshSHA(rec.RefreshCredential)

	keys := []string{s.sessionKey(rec.UserID), s.refreshKey(sha)}
	argv := []interface{}{
		rec.UserID,
		rec.AccessCredential,
		rec.RefreshCredential,
		rec.Payload,
		strconv.FormatInt(rec.ExpiresAt.Unix(), 10),
		sha,
		s.prefix + ":ref:",
		s.recordTTL.Milliseconds(),
	}

	if err := upsertLua.Run(ctx, s.redis, keys, argv...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FindByRefreshCredential describes the findbyrefreshcredential operation and
// its observable behavior.
//
// FindByRefreshCredential resolves the presented credential through the
// reverse index, re-checks the stored value for an exact match, and returns
// [ErrRecordNotFound] when the credential is not current for any user.
func (s *RedisStore) FindByRefreshCredential(ctx context.Context, refresh string) (*Record, error) {
	userID, err := s.redis.Get(ctx, s.refreshKey(refreshSHA(refresh))).Result()
	if err == redis.Nil {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fields, err := s.redis.HGetAll(ctx, s.sessionKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 || fields["refresh"] != refresh {
		// Stale index or hash collision: the record no longer carries this
		// exact credential, so it is not current.
		return nil, ErrRecordNotFound
	}

	expires, _ := strconv.ParseInt(fields["expires_at"], 10, 64)
	return &Record{
		UserID:            fields["user_id"],
		AccessCredential:  fields["access"],
		RefreshCredential: fields["refresh"],
		Payload:           fields["payload"],
		ExpiresAt:         time.Unix(expires, 0),
	}, nil
}

func (s *RedisStore) sessionKey(userID string) string {
	return s.prefix + ":sess:" + userID
}

func (s *RedisStore) refreshKey(sha string) string {
	return s.prefix + ":ref:" + sha
}

func refreshSHA(refresh string) string {
	sum := sha256.Sum256([]byte(refresh))
	return hex.EncodeToString(sum[:])
}
