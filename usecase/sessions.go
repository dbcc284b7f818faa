package usecase

import (
	"context"
	"errors"
	"log"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"
	"time"

	"github.com/google/uuid"
)

// SessionService owns the session lifecycle: it is the only creator and
// closer of sessions. The one-running-session-per-user invariant is enforced
// by the store's partial unique index, not by a lock here.
type SessionService struct {
	Sessions   *repository.SessionRepo
	Aggregator *Aggregator
	Relay      *services.Relay
	Cache      *services.SnapshotCache
	Now        func() time.Time
}

func NewSessionService(sessions *repository.SessionRepo, aggregator *Aggregator) *SessionService {
	return &SessionService{
		Sessions:   sessions,
		Aggregator: aggregator,
		Now:        time.Now,
	}
}

func (svc *SessionService) now() time.Time {
	if svc.Now != nil {
		return svc.Now().UTC()
	}
	return time.Now().UTC()
}

// Start opens a new running session for the user. Concurrent starts race on
// the unique index; every caller but one receives ErrAlreadyRunning.
func (svc *SessionService) Start(ctx context.Context, orgID, userID, projectID, task, description string) (*model.Session, error) {
	if orgID == "" || userID == "" {
		return nil, errors.New("organization and user IDs are required")
	}

	now := svc.now()
	session := &model.Session{
		SessionID:      uuid.New().String(),
		OrganizationID: orgID,
		UserID:         userID,
		ProjectID:      projectID,
		Task:           task,
		Description:    description,
		StartTime:      now,
		Date:           model.DateKey(now),
		Status:         model.StatusRunning,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := svc.Sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	utils.RunningSessions.Inc()
	svc.cacheSnapshot(ctx, session)
	if svc.Relay != nil {
		svc.Relay.PublishToUser(userID, services.Message{
			Event:     services.EventSessionSync,
			Type:      "start",
			UserID:    userID,
			SessionID: session.SessionID,
			ProjectID: projectID,
			Task:      task,
		})
	}

	return session, nil
}

// Stop closes a session after a final synchronous recompute. Stopping an
// already stopped session is an idempotent no-op returning the stored state,
// so retried stop calls converge instead of erroring. If the final recompute
// exhausts its retries the session is still stopped, with needs_recompute
// raised for the next reconciliation pass.
func (svc *SessionService) Stop(ctx context.Context, sessionID, orgID, userID string) (*model.Session, error) {
	session, err := svc.authorize(ctx, sessionID, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !session.IsRunning() {
		return session, nil
	}

	endTime := svc.now()
	final, stopped, err := svc.Aggregator.Finalize(ctx, sessionID, endTime)
	if errors.Is(err, model.ErrConflict) {
		utils.TrackError("session", "stop_recompute_exhausted")
		log.Printf("Final aggregation for session %s exhausted retries; stopping with pending recompute", sessionID)
		final, stopped, err = svc.Sessions.ForceStop(ctx, sessionID, endTime)
		// The cached snapshot still holds the pre-stop aggregates; drop
		// it so reads hit the store until the reconcile sweep refreshes
		// the row.
		if err == nil {
			svc.invalidateSnapshot(ctx, sessionID)
		}
	}
	if err != nil {
		return nil, err
	}

	// A concurrent stop may have won between the IsRunning check and the
	// CAS write; only the call that performed the transition moves the
	// gauge and announces the stop.
	if !stopped {
		return final, nil
	}

	utils.RunningSessions.Dec()
	if svc.Relay != nil {
		svc.Relay.PublishToUser(userID, services.Message{
			Event:     services.EventSessionSync,
			Type:      "stop",
			UserID:    userID,
			SessionID: final.SessionID,
			Seconds:   final.DurationSecs,
		})
		svc.Relay.PublishToUser(userID, services.Message{
			Event:  services.EventStatusChange,
			UserID: userID,
			Status: "inactive",
		})
	}

	return final, nil
}

// Get returns a session with its latest aggregated snapshot, serving from
// the cache when fresh enough.
func (svc *SessionService) Get(ctx context.Context, sessionID, orgID, userID string) (*model.Session, error) {
	if svc.Cache != nil {
		if cached, err := svc.Cache.GetSession(ctx, sessionID); err == nil && cached != nil {
			if cached.OrganizationID != orgID || cached.UserID != userID {
				return nil, model.ErrForbidden
			}
			return cached, nil
		}
	}

	session, err := svc.authorize(ctx, sessionID, orgID, userID)
	if err != nil {
		return nil, err
	}
	svc.cacheSnapshot(ctx, session)
	return session, nil
}

// ListByDate returns the caller's sessions for one calendar day
func (svc *SessionService) ListByDate(ctx context.Context, orgID, userID, date string) ([]*model.Session, error) {
	return svc.Sessions.ListByUserDate(ctx, orgID, userID, date)
}

// authorize loads a session and verifies ownership
func (svc *SessionService) authorize(ctx context.Context, sessionID, orgID, userID string) (*model.Session, error) {
	session, err := svc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OrganizationID != orgID || session.UserID != userID {
		return nil, model.ErrForbidden
	}
	return session, nil
}

func (svc *SessionService) cacheSnapshot(ctx context.Context, session *model.Session) {
	if svc.Cache == nil || session == nil {
		return
	}
	if err := svc.Cache.SetSession(ctx, session); err != nil {
		utils.TrackError("cache", "snapshot_set_failed")
		log.Printf("Warning: failed to cache session snapshot: %v", err)
	}
}

// invalidateSnapshot drops the cached snapshot after a stop. A force-stopped
// session's derived fields are stale until the reconcile sweep runs, so reads
// go back to the store instead of serving the old aggregates for a TTL.
func (svc *SessionService) invalidateSnapshot(ctx context.Context, sessionID string) {
	if svc.Cache == nil {
		return
	}
	if err := svc.Cache.DeleteSession(ctx, sessionID); err != nil {
		utils.TrackError("cache", "snapshot_delete_failed")
		log.Printf("Warning: failed to drop session snapshot: %v", err)
	}
}
