package usecase

import (
	"context"
	"errors"
	"log"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"
	"sync"
	"time"
)

// Aggregator derives a session's duration and active/idle split from its
// event log and persists them with optimistic concurrency control. Many
// recompute attempts may race for one session; only one write per version
// commits, the rest retry against fresh state.
type Aggregator struct {
	Sessions *repository.SessionRepo
	Events   *repository.EventLogRepo
	Relay    *services.Relay
	Cache    *services.SnapshotCache

	MaxAttempts int
	BackoffBase time.Duration

	// Cadence of the sweep that picks up force-stopped sessions whose
	// aggregates were left stale.
	ReconcileInterval time.Duration

	Now func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
	dirty   chan string
}

func NewAggregator(sessions *repository.SessionRepo, events *repository.EventLogRepo, queueSize, maxAttempts int, backoffBase time.Duration) *Aggregator {
	if queueSize < 1 {
		queueSize = 1024
	}
	return &Aggregator{
		Sessions:    sessions,
		Events:      events,
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		Now:         time.Now,
		pending:     make(map[string]struct{}),
		dirty:       make(chan string, queueSize),
	}
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

// MarkDirty signals that a session's event log changed and its aggregates
// need recomputing. Never blocks the caller: signals for a session already
// queued coalesce, and if the queue is full the signal is dropped — the
// events themselves are durable and the next signal recomputes everything.
func (a *Aggregator) MarkDirty(sessionID string) {
	a.mu.Lock()
	if _, queued := a.pending[sessionID]; queued {
		a.mu.Unlock()
		return
	}
	a.pending[sessionID] = struct{}{}
	a.mu.Unlock()

	select {
	case a.dirty <- sessionID:
	default:
		a.mu.Lock()
		delete(a.pending, sessionID)
		a.mu.Unlock()
		utils.TrackError("aggregation", "dirty_queue_full")
	}
}

// Run drains the dirty queue until ctx is cancelled. A session is removed
// from the pending set before its recompute starts, so signals arriving
// mid-recompute (a late event landing) enqueue another pass. A slower ticker
// sweeps up force-stopped sessions, which raise needs_recompute instead of a
// dirty signal.
func (a *Aggregator) Run(ctx context.Context) {
	interval := a.ReconcileInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sessionID := <-a.dirty:
			a.mu.Lock()
			delete(a.pending, sessionID)
			a.mu.Unlock()

			if _, err := a.Recompute(ctx, sessionID); err != nil && !errors.Is(err, model.ErrSessionNotFound) {
				utils.TrackError("aggregation", "recompute_failed")
				log.Printf("Aggregation failed for session %s: %v", sessionID, err)
			}
		case <-ticker.C:
			if err := a.ReconcilePending(ctx); err != nil {
				utils.TrackError("aggregation", "reconcile_scan_failed")
				log.Printf("Reconcile sweep failed: %v", err)
			}
		}
	}
}

// ReconcilePending recomputes every session left with needs_recompute raised
// by a force-stop. The session is already stopped, so its endpoint is the
// stored end time and a committed recompute clears the flag. Per-session
// failures are logged and retried on the next sweep.
func (a *Aggregator) ReconcilePending(ctx context.Context) error {
	sessions, err := a.Sessions.ListNeedsRecompute(ctx)
	if err != nil {
		return err
	}

	for _, session := range sessions {
		if _, err := a.Recompute(ctx, session.SessionID); err != nil {
			utils.TrackError("aggregation", "reconcile_failed")
			log.Printf("Reconcile failed for session %s: %v", session.SessionID, err)
		}
	}
	return nil
}

// Recompute loads the session's version and full ordered event log, rebuilds
// the timeline, and writes the derived fields back conditioned on the version
// still matching. Retries with jittered backoff on conflict; returns
// ErrConflict once attempts are exhausted. The computation is discarded on
// conflict, never the events.
func (a *Aggregator) Recompute(ctx context.Context, sessionID string) (*model.Session, error) {
	var latest *model.Session

	err := utils.RetryWithBackoff(ctx, a.MaxAttempts, a.BackoffBase, func(attempt int) (bool, error) {
		session, err := a.Sessions.GetSession(ctx, sessionID)
		if err != nil {
			return false, err
		}

		endpoint := session.Endpoint(a.now())
		events, err := a.Events.ListSessionEvents(ctx, sessionID, session.StartTime, endpoint)
		if err != nil {
			return false, err
		}

		duration, active, idle := computeTimeline(session.StartTime, endpoint, events)

		committed, err := a.Sessions.UpdateDerived(ctx, sessionID, session.Version, duration, active, idle)
		if err != nil {
			utils.TrackAggregationAttempt("error")
			return false, err
		}
		if !committed {
			utils.TrackAggregationAttempt("conflict")
			return false, nil
		}

		utils.TrackAggregationAttempt("success")
		session.DurationSecs = duration
		session.ActiveSecs = active
		session.IdleSecs = idle
		session.Version++
		session.NeedsRecompute = false
		latest = session
		return true, nil
	})

	if errors.Is(err, utils.ErrAttemptsExhausted) {
		return nil, model.ErrConflict
	}
	if err != nil {
		return nil, err
	}

	a.publishAggregates(ctx, latest)
	return latest, nil
}

// Finalize performs the closing recompute for a stopping session: same
// timeline and CAS discipline as Recompute, but the endpoint is the stop
// time and the committed write also transitions status to stopped. The bool
// reports whether this call performed the running→stopped transition; false
// means a racing stop won and the winner's final state is returned.
func (a *Aggregator) Finalize(ctx context.Context, sessionID string, endTime time.Time) (*model.Session, bool, error) {
	var latest *model.Session
	var stopped bool

	err := utils.RetryWithBackoff(ctx, a.MaxAttempts, a.BackoffBase, func(attempt int) (bool, error) {
		session, err := a.Sessions.GetSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		if !session.IsRunning() {
			// A racing stop won; its final state stands.
			latest = session
			return true, nil
		}

		events, err := a.Events.ListSessionEvents(ctx, sessionID, session.StartTime, endTime)
		if err != nil {
			return false, err
		}

		duration, active, idle := computeTimeline(session.StartTime, endTime, events)

		committed, err := a.Sessions.StopSession(ctx, sessionID, session.Version, endTime, duration, active, idle)
		if err != nil {
			utils.TrackAggregationAttempt("error")
			return false, err
		}
		if !committed {
			utils.TrackAggregationAttempt("conflict")
			return false, nil
		}

		utils.TrackAggregationAttempt("success")
		session.Status = model.StatusStopped
		session.EndTime = &endTime
		session.DurationSecs = duration
		session.ActiveSecs = active
		session.IdleSecs = idle
		session.Version++
		session.NeedsRecompute = false
		latest = session
		stopped = true
		return true, nil
	})

	if errors.Is(err, utils.ErrAttemptsExhausted) {
		return nil, false, model.ErrConflict
	}
	if err != nil {
		return nil, false, err
	}

	if stopped {
		a.publishAggregates(ctx, latest)
	}
	return latest, stopped, nil
}

func (a *Aggregator) publishAggregates(ctx context.Context, session *model.Session) {
	if a.Cache != nil {
		if err := a.Cache.SetSession(ctx, session); err != nil {
			utils.TrackError("cache", "snapshot_set_failed")
			log.Printf("Warning: failed to cache session snapshot: %v", err)
		}
	}
	if a.Relay != nil {
		a.Relay.PublishToUser(session.UserID, services.Message{
			Event:     services.EventTimeTick,
			UserID:    session.UserID,
			SessionID: session.SessionID,
			Duration:  session.DurationSecs,
		})
	}
}

// computeTimeline folds an ordered event log into (duration, active, idle)
// seconds. The timeline alternates at each event's logical timestamp; every
// interval takes the type of the event that opens it, and the lead-in
// interval before the first event counts as active. Duration is pure wall
// clock, and idle is derived as duration minus active so the conservation
// law holds exactly under truncation.
func computeTimeline(start, endpoint time.Time, events []*model.ActivityEvent) (duration, active, idle int64) {
	if endpoint.Before(start) {
		endpoint = start
	}

	var activeSpan time.Duration
	cursor := start
	current := model.ActivityActive

	for _, event := range events {
		ts := event.Timestamp
		if ts.Before(cursor) {
			// Defensively clamp; out-of-range events are rejected at ingest.
			ts = cursor
		}
		if ts.After(endpoint) {
			break
		}
		if current == model.ActivityActive {
			activeSpan += ts.Sub(cursor)
		}
		cursor = ts
		current = event.Type
	}

	if current == model.ActivityActive {
		activeSpan += endpoint.Sub(cursor)
	}

	duration = int64(endpoint.Sub(start) / time.Second)
	active = int64(activeSpan / time.Second)
	if active > duration {
		active = duration
	}
	idle = duration - active
	return duration, active, idle
}
