package lockbox

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/teamforge/lockbox/store"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"baseline", nil, false},
		{"zero access ttl", func(c *Config) { c.Envelope.AccessTTL = 0 }, true},
		{"zero refresh ttl", func(c *Config) { c.Envelope.RefreshTTL = 0 }, true},
		{"refresh shorter than access", func(c *Config) {
			c.Envelope.AccessTTL = time.Hour
			c.Envelope.RefreshTTL = time.Minute
		}, true},
		{"no signing secrets", func(c *Config) { c.Envelope.SigningSecrets = nil }, true},
		{"short signing secret", func(c *Config) {
			c.Envelope.SigningSecrets = [][]byte{[]byte("short")}
		}, true},
		{"wrong cipher key size", func(c *Config) { c.Cipher.Secret = []byte("too-short") }, true},
		{"cipher key reused for signing", func(c *Config) {
			c.Envelope.SigningSecrets = [][]byte{c.Cipher.Secret}
		}, true},
		{"negative leeway", func(c *Config) { c.Envelope.Leeway = -time.Second }, true},
		{"excessive leeway", func(c *Config) { c.Envelope.Leeway = 5 * time.Minute }, true},
		{"two candidate secrets", func(c *Config) {
			c.Envelope.SigningSecrets = append(c.Envelope.SigningSecrets, []byte("second-candidate-secret-0123456"))
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testEngineConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

// Build must deep-copy key material so later mutation of the caller's
// slices cannot reach the engine.
func TestConfigCloneIsolatesSecrets(t *testing.T) {
	secret := []byte("mutable-signing-secret-0123456789")
	cipherKey := []byte("0123456789abcdef0123456789abcdef")

	cfg := testEngineConfig()
	cfg.Envelope.SigningSecrets = [][]byte{secret}
	cfg.Cipher.Secret = cipherKey

	clone := cloneConfig(cfg)
	secret[0] = 'X'
	cipherKey[0] = 'X'

	if clone.Envelope.SigningSecrets[0][0] == 'X' {
		t.Fatal("signing secret not deep-copied")
	}
	if clone.Cipher.Secret[0] == 'X' {
		t.Fatal("cipher secret not deep-copied")
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	cfg := testEngineConfig()

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testEngineConfig()
	b := New().
		WithConfig(cfg).
		WithStore(store.NewRedisStore(rdb, "lb", cfg.Envelope.RefreshTTL)).
		WithUserDirectory(&stubDirectory{users: map[string]bool{"u1": true}})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error from a consumed builder")
	}
}
