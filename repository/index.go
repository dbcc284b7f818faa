package repository

import (
	"context"
	"fmt"
	"log"
	"main/model"
	"main/utils"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionsCollection := db.Collection(utils.GetEnvAsString("SESSIONS_COLLECTION", "sessions"))
	summariesCollection := db.Collection(utils.GetEnvAsString("SUMMARIES_COLLECTION", "daily_summaries"))

	sessionIndexes := []mongo.IndexModel{
		// At most one running session per user. The partial filter keeps
		// the uniqueness constraint off stopped sessions, so concurrent
		// starts race on the index and the loser gets a duplicate key.
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().
				SetName("one_running_session_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "status", Value: model.StatusRunning},
				}),
		},
		// Composite lookup for rollup and reporting reads
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().
				SetName("user_sessions_date").
				SetUnique(false),
		},
		// Rollup sweep over recently changed sessions
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().
				SetName("sessions_updated_at"),
		},
		// Reconcile sweep over force-stopped sessions with stale aggregates.
		// Partial so the index only ever holds the handful of flagged rows.
		{
			Keys: bson.D{{Key: "needs_recompute", Value: 1}},
			Options: options.Index().
				SetName("sessions_needs_recompute").
				SetPartialFilterExpression(bson.D{
					{Key: "needs_recompute", Value: true},
				}),
		},
	}

	summaryIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().
				SetName("user_day_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().
				SetName("org_summaries_date"),
		},
	}

	if _, err := sessionsCollection.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	if _, err := summariesCollection.Indexes().CreateMany(ctx, summaryIndexes); err != nil {
		return fmt.Errorf("failed to create summary indexes: %w", err)
	}

	log.Println("Successfully created all indexes")
	return nil
}
