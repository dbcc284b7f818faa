package repository

import (
	"context"
	"fmt"
	"main/model"
	"main/utils"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventLogRepo is the append-only activity event log. Events are partitioned
// into one collection per calendar month of their logical timestamp
// (activity_events_YYYYMM); rows are never updated or deleted.
type EventLogRepo struct {
	DB *mongo.Database

	mu       sync.Mutex
	prepared map[string]bool // partitions whose indexes exist
}

func GetEventLogRepo(client *mongo.Client) *EventLogRepo {
	dbName := utils.GetEnvAsString("MONGO_DB", "timecore")
	return &EventLogRepo{
		DB:       client.Database(dbName),
		prepared: make(map[string]bool),
	}
}

func partitionName(t time.Time) string {
	return "activity_events_" + t.UTC().Format("200601")
}

// ensurePartition creates the (session_id, timestamp) index for a partition
// the first time this process touches it. Index creation is idempotent on
// the server, the map only saves the round trip.
func (r *EventLogRepo) ensurePartition(ctx context.Context, name string) error {
	r.mu.Lock()
	if r.prepared[name] {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	index := mongo.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "timestamp", Value: 1},
		},
		Options: options.Index().SetName("session_events_time"),
	}

	if _, err := r.DB.Collection(name).Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", name, err)
	}

	r.mu.Lock()
	r.prepared[name] = true
	r.mu.Unlock()
	return nil
}

// AppendEvent durably records one activity event. ReceivedAt is assigned
// here if the caller left it zero; it is a tiebreaker for events carrying
// identical logical timestamps, never the event's own time.
func (r *EventLogRepo) AppendEvent(ctx context.Context, event *model.ActivityEvent) error {
	timer := utils.TrackDBOperation("insert", "activity_events")
	defer timer.ObserveDuration()

	if event == nil {
		utils.TrackError("database", "nil_event")
		return fmt.Errorf("event cannot be nil")
	}
	if event.SessionID == "" || event.EventID == "" {
		utils.TrackError("database", "invalid_event_data")
		return fmt.Errorf("invalid event data: missing required fields")
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	partition := partitionName(event.Timestamp)
	if err := r.ensurePartition(ctx, partition); err != nil {
		utils.TrackError("database", "event_partition_failed")
		return err
	}

	if _, err := r.DB.Collection(partition).InsertOne(ctx, event); err != nil {
		utils.TrackError("database", "event_append_failed")
		return fmt.Errorf("failed to append activity event: %w", err)
	}

	return nil
}

// ListSessionEvents returns a session's events with timestamps in [from, to],
// ordered by (timestamp, received_at). Each partition covers a disjoint
// timestamp range, so sorting within a partition and concatenating in month
// order yields a globally sorted log.
func (r *EventLogRepo) ListSessionEvents(ctx context.Context, sessionID string, from, to time.Time) ([]*model.ActivityEvent, error) {
	timer := utils.TrackDBOperation("find", "activity_events")
	defer timer.ObserveDuration()

	var events []*model.ActivityEvent
	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "received_at", Value: 1},
	})

	for _, partition := range partitionsInRange(from, to) {
		filter := bson.M{
			"session_id": sessionID,
			"timestamp": bson.M{
				"$gte": from.UTC(),
				"$lte": to.UTC(),
			},
		}

		cursor, err := r.DB.Collection(partition).Find(ctx, filter, opts)
		if err != nil {
			utils.TrackError("database", "event_list_failed")
			return nil, fmt.Errorf("failed to read event log %s: %w", partition, err)
		}

		var page []*model.ActivityEvent
		if err = cursor.All(ctx, &page); err != nil {
			utils.TrackError("database", "event_decode_failed")
			return nil, fmt.Errorf("failed to decode event log %s: %w", partition, err)
		}
		events = append(events, page...)
	}

	return events, nil
}

// CountSessionEvents reports how many events a session holds in [from, to]
func (r *EventLogRepo) CountSessionEvents(ctx context.Context, sessionID string, from, to time.Time) (int64, error) {
	timer := utils.TrackDBOperation("count", "activity_events")
	defer timer.ObserveDuration()

	var total int64
	for _, partition := range partitionsInRange(from, to) {
		count, err := r.DB.Collection(partition).CountDocuments(ctx, bson.M{
			"session_id": sessionID,
			"timestamp":  bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count events in %s: %w", partition, err)
		}
		total += count
	}
	return total, nil
}

// partitionsInRange lists the monthly partition names covering [from, to]
func partitionsInRange(from, to time.Time) []string {
	from, to = from.UTC(), to.UTC()
	if to.Before(from) {
		return nil
	}

	var names []string
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(last) {
		names = append(names, partitionName(cursor))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return names
}
