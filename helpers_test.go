package lockbox

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/teamforge/lockbox/store"
)

type stubDirectory struct {
	users map[string]bool
	err   error
}

func (d *stubDirectory) Exists(_ context.Context, userID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.users[userID], nil
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.Envelope.SigningSecrets = [][]byte{[]byte("test-signing-secret-k1-0123456789")}
	cfg.Cipher.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := New().
		WithConfig(cfg).
		WithStore(store.NewRedisStore(rdb, "lb", cfg.Envelope.RefreshTTL)).
		WithUserDirectory(&stubDirectory{users: map[string]bool{"u1": true, "u2": true}}).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

func newAuditedEngine(t *testing.T, sink AuditSink) *Engine {
	t.Helper()

	cfg := testEngineConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := New().
		WithConfig(cfg).
		WithStore(store.NewRedisStore(rdb, "lb", cfg.Envelope.RefreshTTL)).
		WithUserDirectory(&stubDirectory{users: map[string]bool{"u1": true, "u2": true}}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

// deviceContext builds the three fingerprint signals the way the HTTP tier
// would: resolved IP, normalized user-agent, and the session correlation id
// the client echoes back.
func deviceContext(ip, ua, sessionRef string) context.Context {
	ctx := WithClientIP(context.Background(), ip)
	ctx = WithUserAgent(ctx, ua)
	return WithSessionRef(ctx, sessionRef)
}

func mustIssue(t *testing.T, e *Engine, ctx context.Context, userID string) *Credentials {
	t.Helper()

	creds, err := e.Issue(ctx, userID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if creds.AccessCredential == "" || creds.RefreshCredential == "" {
		t.Fatal("issue returned empty credentials")
	}
	if !creds.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry not in the future: %v", creds.ExpiresAt)
	}
	return creds
}
