package usecase

import (
	"context"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"
	"time"

	"github.com/google/uuid"
)

// ActivityService accepts activity events concurrently. It appends to the
// immutable event log and signals the aggregator; it never touches the
// session row itself, so N concurrent ingest calls do not serialize on the
// session's write path.
type ActivityService struct {
	Sessions   *repository.SessionRepo
	Events     *repository.EventLogRepo
	Aggregator *Aggregator
	Relay      *services.Relay

	// How far into the future a timestamp may point before rejection.
	SkewTolerance time.Duration
	Now           func() time.Time
}

func NewActivityService(sessions *repository.SessionRepo, events *repository.EventLogRepo, aggregator *Aggregator, skewTolerance time.Duration) *ActivityService {
	return &ActivityService{
		Sessions:      sessions,
		Events:        events,
		Aggregator:    aggregator,
		SkewTolerance: skewTolerance,
		Now:           time.Now,
	}
}

func (svc *ActivityService) now() time.Time {
	if svc.Now != nil {
		return svc.Now().UTC()
	}
	return time.Now().UTC()
}

// Record validates and appends one activity event, then marks the session
// dirty. Returns as soon as the event is durable; aggregation happens on the
// background loop. Events for stopped or unknown sessions are rejected, not
// queued.
func (svc *ActivityService) Record(ctx context.Context, sessionID, orgID, userID string, activityType model.ActivityType, timestamp time.Time) (*model.ActivityEvent, error) {
	if !activityType.Valid() {
		return nil, model.ErrInvalidState
	}

	session, err := svc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OrganizationID != orgID || session.UserID != userID {
		return nil, model.ErrForbidden
	}
	if !session.IsRunning() {
		return nil, model.ErrInvalidState
	}

	now := svc.now()
	timestamp = timestamp.UTC()
	if timestamp.Before(session.StartTime) || timestamp.After(now.Add(svc.SkewTolerance)) {
		return nil, model.ErrOutOfRangeTimestamp
	}

	event := &model.ActivityEvent{
		EventID:    uuid.New().String(),
		SessionID:  sessionID,
		UserID:     userID,
		Type:       activityType,
		Timestamp:  timestamp,
		ReceivedAt: now,
	}

	if err := svc.Events.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	utils.TrackActivityEvent(string(activityType))
	svc.Aggregator.MarkDirty(sessionID)

	if svc.Relay != nil {
		status := "active"
		if activityType == model.ActivityIdle {
			status = "inactive"
		}
		svc.Relay.PublishToUser(userID, services.Message{
			Event:  services.EventStatusChange,
			UserID: userID,
			Status: status,
		})
	}

	return event, nil
}
