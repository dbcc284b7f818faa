package usecase

import (
	"context"
	"log"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"
	"sync"
	"time"
)

// RollupService folds a user's sessions for one calendar day into its
// DailySummary. Totals are recomputed from scratch every pass, so re-running
// a rollup is idempotent, and running it against a day with an open session
// yields a point-in-time snapshot that the next pass refreshes.
type RollupService struct {
	Sessions  *repository.SessionRepo
	Summaries *repository.SummaryRepo
	Relay     *services.Relay

	Interval time.Duration
	Now      func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

func NewRollupService(sessions *repository.SessionRepo, summaries *repository.SummaryRepo, interval time.Duration) *RollupService {
	return &RollupService{
		Sessions:  sessions,
		Summaries: summaries,
		Interval:  interval,
		Now:       time.Now,
	}
}

// Rollup recomputes and upserts the summary for one (org, user, date)
func (svc *RollupService) Rollup(ctx context.Context, orgID, userID, date string) (*model.DailySummary, error) {
	sessions, err := svc.Sessions.ListByUserDate(ctx, orgID, userID, date)
	if err != nil {
		return nil, err
	}

	summary := foldSessions(orgID, userID, date, sessions)
	if err := svc.Summaries.UpsertSummary(ctx, summary); err != nil {
		return nil, err
	}

	if svc.Relay != nil {
		svc.Relay.PublishToObservers(services.Message{
			Event:        services.EventStatsUpdate,
			UserID:       userID,
			Productivity: summary.ProductivityScore,
		})
	}

	return summary, nil
}

// Run sweeps on a ticker: every interval it finds the (user, day) pairs with
// session changes since the previous pass and rolls each up. Failures are
// logged and retried on the next pass; the rollup never blocks the session
// start/stop/activity paths.
func (svc *RollupService) Run(ctx context.Context) {
	interval := svc.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	svc.mu.Lock()
	svc.lastSweep = svc.Now().UTC()
	svc.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.sweep(ctx); err != nil {
				utils.TrackError("rollup", "sweep_failed")
				log.Printf("Rollup sweep failed: %v", err)
			}
		}
	}
}

func (svc *RollupService) sweep(ctx context.Context) error {
	svc.mu.Lock()
	since := svc.lastSweep
	sweepStart := svc.Now().UTC()
	svc.mu.Unlock()

	sessions, err := svc.Sessions.ListUpdatedSince(ctx, since)
	if err != nil {
		return err
	}

	type key struct{ org, user, date string }
	seen := make(map[key]bool)
	for _, session := range sessions {
		k := key{session.OrganizationID, session.UserID, session.Date}
		if seen[k] {
			continue
		}
		seen[k] = true

		if _, err := svc.Rollup(ctx, k.org, k.user, k.date); err != nil {
			utils.TrackError("rollup", "rollup_failed")
			log.Printf("Rollup failed for user %s on %s: %v", k.user, k.date, err)
			// Leave lastSweep untouched so the pair is retried next tick.
			return err
		}
	}

	svc.mu.Lock()
	svc.lastSweep = sweepStart
	svc.mu.Unlock()
	return nil
}

// foldSessions sums a day's sessions into its summary. The productivity
// score is total active over total duration, clamped into [0, 1].
func foldSessions(orgID, userID, date string, sessions []*model.Session) *model.DailySummary {
	summary := &model.DailySummary{
		OrganizationID: orgID,
		UserID:         userID,
		Date:           date,
	}

	var totalActive int64
	for _, session := range sessions {
		summary.TotalWorkSeconds += session.DurationSecs
		summary.TotalIdleSeconds += session.IdleSecs
		totalActive += session.ActiveSecs
		summary.SessionCount++
	}

	denominator := summary.TotalWorkSeconds
	if denominator < 1 {
		denominator = 1
	}
	summary.ProductivityScore = float64(totalActive) / float64(denominator)
	if summary.ProductivityScore > 1 {
		summary.ProductivityScore = 1
	}

	return summary
}
