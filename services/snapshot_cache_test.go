package services

import (
	"context"
	"main/model"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupCache(t *testing.T) *SnapshotCache {
	t.Helper()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/1"
	}

	cache, err := NewSnapshotCache(redisURL, 30*time.Second)
	if err != nil {
		t.Skipf("Redis not reachable, skipping: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func cachedSession() *model.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Session{
		SessionID:      uuid.New().String(),
		OrganizationID: uuid.New().String(),
		UserID:         uuid.New().String(),
		StartTime:      now,
		Date:           model.DateKey(now),
		Status:         model.StatusRunning,
		Version:        1,
	}
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	session := cachedSession()
	if err := cache.SetSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	got, err := cache.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a cached snapshot, got a miss")
	}
	if got.SessionID != session.SessionID || got.Version != session.Version {
		t.Errorf("cached snapshot diverged: %+v", got)
	}
}

func TestSnapshotCacheDeleteInvalidates(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	session := cachedSession()
	if err := cache.SetSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	if err := cache.DeleteSession(ctx, session.SessionID); err != nil {
		t.Fatal(err)
	}

	got, err := cache.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("deleted snapshot still served: %+v", got)
	}

	// Deleting an absent key is a no-op, not an error.
	if err := cache.DeleteSession(ctx, session.SessionID); err != nil {
		t.Error("second delete errored:", err)
	}
}

func TestSnapshotCacheMissReturnsNil(t *testing.T) {
	cache := setupCache(t)

	got, err := cache.GetSession(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected a miss, got %+v", got)
	}
}

func TestSnapshotCacheIsConnected(t *testing.T) {
	cache := setupCache(t)

	if !cache.IsConnected() {
		t.Error("connected cache reports disconnected")
	}

	var absent *SnapshotCache
	if absent.IsConnected() {
		t.Error("nil cache must report disconnected")
	}
}
