package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, "lb", time.Hour), mr
}

func testRecord(userID, access, refresh string) Record {
	return Record{
		UserID:            userID,
		AccessCredential:  access,
		RefreshCredential: refresh,
		Payload:           "aa:bb",
		ExpiresAt:         time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

func TestUpsertAndFindByRefreshCredential(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("u1", "A1", "R1")
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := s.FindByRefreshCredential(ctx, "R1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.UserID != "u1" || got.AccessCredential != "A1" || got.Payload != "aa:bb" {
		t.Fatalf("record mismatch: %+v", got)
	}
	if !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("expires_at mismatch: got %v want %v", got.ExpiresAt, rec.ExpiresAt)
	}
}

func TestUpsertReplacesPriorRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, testRecord("u1", "A1", "R1")); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, testRecord("u1", "A2", "R2")); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	// The superseded refresh credential must no longer resolve.
	if _, err := s.FindByRefreshCredential(ctx, "R1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for rotated-out credential, got %v", err)
	}

	got, err := s.FindByRefreshCredential(ctx, "R2")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.AccessCredential != "A2" {
		t.Fatalf("expected replaced record, got %+v", got)
	}
}

func TestFindUnknownCredential(t *testing.T) {
	s, _ := newTestStore(t)

	if _, err := s.FindByRefreshCredential(context.Background(), "never-issued"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestFindRejectsStaleIndex(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, testRecord("u1", "A1", "R1")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// Simulate a record that changed underneath its index entry.
	mr.HSet("lb:sess:u1", "refresh", "R-other")

	if _, err := s.FindByRefreshCredential(ctx, "R1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for stale index, got %v", err)
	}
}

func TestConcurrentUpsertLastWriteWins(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Two racing rotations for the same user: both writes are complete
	// atomic replacements, so whichever lands second defines the record.
	if err := s.Upsert(ctx, testRecord("u1", "A1", "R1")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, testRecord("u1", "A2", "R2")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, testRecord("u1", "A3", "R3")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	for _, stale := range []string{"R1", "R2"} {
		if _, err := s.FindByRefreshCredential(ctx, stale); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("credential %s: expected ErrRecordNotFound, got %v", stale, err)
		}
	}
	got, err := s.FindByRefreshCredential(ctx, "R3")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.AccessCredential != "A3" {
		t.Fatalf("expected last write to win, got %+v", got)
	}
}
