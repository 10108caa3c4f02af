// Package rate provides the fixed-window Redis limiter the HTTP tier applies
// in front of the issuance and refresh endpoints. The protocol engine itself
// never rate limits; throttling is an edge concern injected by the host.
package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLimited reports that the caller exhausted its window budget.
	ErrLimited = errors.New("rate limited")
	// ErrUnavailable reports that the limiter backend could not be reached.
	ErrUnavailable = errors.New("rate limiter unavailable")
)

// Config bounds one limiter: at most MaxAttempts hits per key per Window.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter is a fixed-window counter over Redis. Each key gets an INCR with a
// window-long TTL set on first hit; crossing MaxAttempts within the window
// yields [ErrLimited].
type Limiter struct {
	redis  *redis.Client
	prefix string
	config Config
}

// NewLimiter describes the newlimiter operation and its observable behavior.
func NewLimiter(redisClient *redis.Client, prefix string, cfg Config) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// Enforce counts one hit against key and reports whether the caller is still
// within budget. The first hit of a window sets the expiry; subsequent hits
// ride the existing one.
func (l *Limiter) Enforce(ctx context.Context, key string) error {
	full := l.prefix + ":" + key

	count, err := l.redis.Incr(ctx, full).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, full, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrLimited
	}

	return nil
}

// IssueKeys returns the two keys an issuance request burns: one per user id,
// one per client IP. Both must pass.
func IssueKeys(userID, ip string) []string {
	return []string{"iss:u:" + userID, "iss:ip:" + ip}
}

// RefreshKey buckets refresh attempts by a digest of the presented
// credential, so a replayed credential throttles itself without the limiter
// ever storing the credential.
func RefreshKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return "ref:c:" + hex.EncodeToString(sum[:])
}

// EnforceAll applies Enforce to every key and stops at the first failure.
func (l *Limiter) EnforceAll(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := l.Enforce(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
