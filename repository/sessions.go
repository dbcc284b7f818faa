package repository

import (
	"context"
	"fmt"
	"main/model"
	"main/utils"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepo struct {
	MongoCollection *mongo.Collection
}

// Retrieves MongoDB collection for work sessions
func GetSessionRepo(client *mongo.Client) *SessionRepo {
	dbName := utils.GetEnvAsString("MONGO_DB", "timecore")
	collectionName := utils.GetEnvAsString("SESSIONS_COLLECTION", "sessions")
	return &SessionRepo{
		MongoCollection: client.Database(dbName).Collection(collectionName),
	}
}

// CreateSession inserts a new running session. The partial unique index on
// (organization_id, user_id) over running sessions makes concurrent starts
// race-safe: the loser of the race gets a duplicate key error, surfaced as
// ErrAlreadyRunning.
func (r *SessionRepo) CreateSession(ctx context.Context, session *model.Session) error {
	timer := utils.TrackDBOperation("insert", "sessions")
	defer timer.ObserveDuration()

	if session == nil {
		utils.TrackError("database", "nil_session")
		return fmt.Errorf("session cannot be nil")
	}
	if session.SessionID == "" || session.UserID == "" || session.OrganizationID == "" {
		utils.TrackError("database", "invalid_session_data")
		return fmt.Errorf("invalid session data: missing required fields")
	}

	_, err := r.MongoCollection.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrAlreadyRunning
	}
	if err != nil {
		utils.TrackError("database", "session_creation_failed")
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession looks up a session by ID
func (r *SessionRepo) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	var session model.Session
	err := r.MongoCollection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		utils.TrackError("database", "session_fetch_failed")
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return &session, nil
}

// FindRunning returns the user's running session, or ErrSessionNotFound
func (r *SessionRepo) FindRunning(ctx context.Context, orgID, userID string) (*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	filter := bson.M{
		"organization_id": orgID,
		"user_id":         userID,
		"status":          model.StatusRunning,
	}

	var session model.Session
	err := r.MongoCollection.FindOne(ctx, filter).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		utils.TrackError("database", "session_fetch_failed")
		return nil, fmt.Errorf("failed to fetch running session: %w", err)
	}
	return &session, nil
}

// UpdateDerived writes the aggregation engine's computed fields with a
// compare-and-swap on version: the update matches only if the stored version
// still equals expectedVersion, and bumps it by one in the same atomic write.
// Returns false (and no error) when another writer committed first.
func (r *SessionRepo) UpdateDerived(ctx context.Context, sessionID string, expectedVersion, duration, active, idle int64) (bool, error) {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	filter := bson.M{
		"_id":     sessionID,
		"version": expectedVersion,
	}

	update := bson.M{
		"$set": bson.M{
			"duration_seconds": duration,
			"active_seconds":   active,
			"idle_seconds":     idle,
			"needs_recompute":  false,
			"updated_at":       time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		utils.TrackError("database", "session_cas_failed")
		return false, fmt.Errorf("failed to update session aggregates: %w", err)
	}

	return result.MatchedCount == 1, nil
}

// StopSession transitions a session to stopped together with its final
// aggregates, under the same compare-and-swap discipline as UpdateDerived.
func (r *SessionRepo) StopSession(ctx context.Context, sessionID string, expectedVersion int64, endTime time.Time, duration, active, idle int64) (bool, error) {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	filter := bson.M{
		"_id":     sessionID,
		"version": expectedVersion,
		"status":  model.StatusRunning,
	}

	update := bson.M{
		"$set": bson.M{
			"status":           model.StatusStopped,
			"end_time":         endTime,
			"duration_seconds": duration,
			"active_seconds":   active,
			"idle_seconds":     idle,
			"needs_recompute":  false,
			"updated_at":       time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		utils.TrackError("database", "session_stop_failed")
		return false, fmt.Errorf("failed to stop session: %w", err)
	}

	return result.MatchedCount == 1, nil
}

// ForceStop marks a session stopped when the final aggregation exhausted its
// retries. The derived fields are left as-is and needs_recompute is raised so
// the aggregation loop's reconcile sweep refreshes them. The $inc keeps
// version monotonic without acting on a previously observed value. The bool
// reports whether this call performed the transition; false means a racing
// stop won and the stored state is returned unchanged.
func (r *SessionRepo) ForceStop(ctx context.Context, sessionID string, endTime time.Time) (*model.Session, bool, error) {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	filter := bson.M{
		"_id":    sessionID,
		"status": model.StatusRunning,
	}

	update := bson.M{
		"$set": bson.M{
			"status":          model.StatusStopped,
			"end_time":        endTime,
			"needs_recompute": true,
			"updated_at":      time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var session model.Session
	err := r.MongoCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err == mongo.ErrNoDocuments {
		// Already stopped by a racing stop; return the stored state.
		stored, err := r.GetSession(ctx, sessionID)
		return stored, false, err
	}
	if err != nil {
		utils.TrackError("database", "session_force_stop_failed")
		return nil, false, fmt.Errorf("failed to force-stop session: %w", err)
	}
	return &session, true, nil
}

// ListNeedsRecompute returns stopped sessions whose derived fields were left
// stale by a force-stop. Backed by the partial needs_recompute index.
func (r *SessionRepo) ListNeedsRecompute(ctx context.Context) ([]*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{"needs_recompute": true})
	if err != nil {
		utils.TrackError("database", "session_reconcile_scan_failed")
		return nil, fmt.Errorf("failed to scan for pending recomputes: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		utils.TrackError("database", "session_decode_failed")
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// ListByUserDate returns all of a user's sessions for one calendar day,
// oldest first. Backed by the (user_id, date) index.
func (r *SessionRepo) ListByUserDate(ctx context.Context, orgID, userID, date string) ([]*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	filter := bson.M{
		"organization_id": orgID,
		"user_id":         userID,
		"date":            date,
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.MongoCollection.Find(ctx, filter, opts)
	if err != nil {
		utils.TrackError("database", "session_list_failed")
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		utils.TrackError("database", "session_decode_failed")
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// ListUpdatedSince returns sessions whose record changed at or after the
// given instant. The rollup sweep uses it to find the (user, day) pairs that
// need refreshing.
func (r *SessionRepo) ListUpdatedSince(ctx context.Context, since time.Time) ([]*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{"updated_at": bson.M{"$gte": since}})
	if err != nil {
		utils.TrackError("database", "session_sweep_failed")
		return nil, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		utils.TrackError("database", "session_decode_failed")
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}
