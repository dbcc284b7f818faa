package repository

import (
	"context"
	"errors"
	"main/model"
	"main/test/testutils"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newRunningSession(orgID, userID string, start time.Time) *model.Session {
	return &model.Session{
		SessionID:      uuid.New().String(),
		OrganizationID: orgID,
		UserID:         userID,
		StartTime:      start,
		Date:           model.DateKey(start),
		Status:         model.StatusRunning,
		Version:        1,
		CreatedAt:      start,
		UpdatedAt:      start,
	}
}

func TestSessionRepoOperations(t *testing.T) {
	testutils.SetupTestEnvironment()
	client, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	db := client.Database(os.Getenv("MONGO_DB"))
	if err := SetupIndexes(db); err != nil {
		t.Fatal("failed to set up indexes:", err)
	}

	repo := SessionRepo{MongoCollection: db.Collection(os.Getenv("SESSIONS_COLLECTION"))}

	orgID := uuid.New().String()
	userID := uuid.New().String()
	start := time.Now().UTC().Truncate(time.Millisecond)
	session := newRunningSession(orgID, userID, start)

	t.Run("CreateSession", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := repo.CreateSession(ctx, session); err != nil {
			t.Fatal("failed to create session:", err)
		}
	})

	t.Run("SecondRunningSessionRejected", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := repo.CreateSession(ctx, newRunningSession(orgID, userID, start.Add(time.Second)))
		if !errors.Is(err, model.ErrAlreadyRunning) {
			t.Fatalf("error = %v, want ErrAlreadyRunning", err)
		}
	})

	t.Run("GetSession", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		got, err := repo.GetSession(ctx, session.SessionID)
		if err != nil {
			t.Fatal("failed to fetch session:", err)
		}
		if got.Version != 1 || got.Status != model.StatusRunning {
			t.Errorf("unexpected session state: %+v", got)
		}
	})

	t.Run("FindRunning", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		got, err := repo.FindRunning(ctx, orgID, userID)
		if err != nil {
			t.Fatal("failed to find running session:", err)
		}
		if got.SessionID != session.SessionID {
			t.Errorf("found %s, want %s", got.SessionID, session.SessionID)
		}
	})

	t.Run("UpdateDerivedCAS", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		committed, err := repo.UpdateDerived(ctx, session.SessionID, 1, 60, 45, 15)
		if err != nil {
			t.Fatal("failed to update aggregates:", err)
		}
		if !committed {
			t.Fatal("expected CAS with current version to commit")
		}

		got, err := repo.GetSession(ctx, session.SessionID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Version != 2 {
			t.Errorf("version = %d, want 2 after one successful mutation", got.Version)
		}
		if got.DurationSecs != 60 || got.ActiveSecs != 45 || got.IdleSecs != 15 {
			t.Errorf("aggregates not written: %+v", got)
		}
	})

	t.Run("StaleVersionWritesNothing", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		committed, err := repo.UpdateDerived(ctx, session.SessionID, 1, 999, 999, 0)
		if err != nil {
			t.Fatal(err)
		}
		if committed {
			t.Fatal("CAS against a stale version must not commit")
		}

		got, err := repo.GetSession(ctx, session.SessionID)
		if err != nil {
			t.Fatal(err)
		}
		if got.DurationSecs != 60 || got.Version != 2 {
			t.Errorf("stale writer corrupted the row: %+v", got)
		}
	})

	t.Run("StopSession", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		endTime := start.Add(2 * time.Minute)
		committed, err := repo.StopSession(ctx, session.SessionID, 2, endTime, 120, 90, 30)
		if err != nil {
			t.Fatal("failed to stop session:", err)
		}
		if !committed {
			t.Fatal("expected stop CAS to commit")
		}

		got, err := repo.GetSession(ctx, session.SessionID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.StatusStopped || got.EndTime == nil {
			t.Errorf("session not stopped: %+v", got)
		}
		if got.Version != 3 {
			t.Errorf("version = %d, want 3", got.Version)
		}
	})

	t.Run("StopAlreadyStoppedDoesNotCommit", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		committed, err := repo.StopSession(ctx, session.SessionID, 3, start.Add(3*time.Minute), 180, 180, 0)
		if err != nil {
			t.Fatal(err)
		}
		if committed {
			t.Fatal("stopping a stopped session must not commit")
		}
	})

	t.Run("NewSessionAfterStop", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// The partial index only guards running sessions, so a fresh
		// start after a stop is allowed.
		if err := repo.CreateSession(ctx, newRunningSession(orgID, userID, start.Add(time.Hour))); err != nil {
			t.Fatal("failed to start a new session after stop:", err)
		}
	})

	t.Run("ListByUserDate", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sessions, err := repo.ListByUserDate(ctx, orgID, userID, model.DateKey(start))
		if err != nil {
			t.Fatal("failed to list sessions:", err)
		}
		if len(sessions) < 1 {
			t.Errorf("expected at least one session for the day, got %d", len(sessions))
		}
	})

	t.Run("GetUnknownSession", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := repo.GetSession(ctx, uuid.New().String())
		if !errors.Is(err, model.ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestSessionRepoForceStop(t *testing.T) {
	testutils.SetupTestEnvironment()
	client, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	db := client.Database(os.Getenv("MONGO_DB"))
	repo := SessionRepo{MongoCollection: db.Collection(os.Getenv("SESSIONS_COLLECTION"))}

	start := time.Now().UTC().Truncate(time.Millisecond)
	session := newRunningSession(uuid.New().String(), uuid.New().String(), start)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatal(err)
	}

	got, stopped, err := repo.ForceStop(ctx, session.SessionID, start.Add(time.Minute))
	if err != nil {
		t.Fatal("failed to force-stop:", err)
	}
	if !stopped {
		t.Error("first force-stop must report the transition")
	}
	if got.Status != model.StatusStopped {
		t.Errorf("status = %s, want stopped", got.Status)
	}
	if !got.NeedsRecompute {
		t.Error("force-stopped session must be flagged for recompute")
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}

	// Force-stopping again returns the stored state unchanged.
	again, stopped, err := repo.ForceStop(ctx, session.SessionID, start.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if stopped {
		t.Error("second force-stop must not report a transition")
	}
	if again.Version != 2 || !again.EndTime.Equal(*got.EndTime) {
		t.Errorf("second force-stop changed the row: %+v", again)
	}
}
