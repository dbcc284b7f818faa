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

type SummaryRepo struct {
	MongoCollection *mongo.Collection
}

// Retrieves MongoDB collection for daily summaries
func GetSummaryRepo(client *mongo.Client) *SummaryRepo {
	dbName := utils.GetEnvAsString("MONGO_DB", "timecore")
	collectionName := utils.GetEnvAsString("SUMMARIES_COLLECTION", "daily_summaries")
	return &SummaryRepo{
		MongoCollection: client.Database(dbName).Collection(collectionName),
	}
}

// UpsertSummary writes the recomputed totals for one (user, date). Totals are
// deterministic given the same sessions, so concurrent rollups for the same
// day converge under last-write-wins.
func (r *SummaryRepo) UpsertSummary(ctx context.Context, summary *model.DailySummary) error {
	timer := utils.TrackDBOperation("upsert", "daily_summaries")
	defer timer.ObserveDuration()

	if summary == nil {
		utils.TrackError("database", "nil_summary")
		return fmt.Errorf("summary cannot be nil")
	}
	if summary.UserID == "" || summary.Date == "" {
		utils.TrackError("database", "invalid_summary_data")
		return fmt.Errorf("invalid summary data: missing required fields")
	}
	summary.UpdatedAt = time.Now().UTC()

	filter := bson.M{
		"organization_id": summary.OrganizationID,
		"user_id":         summary.UserID,
		"date":            summary.Date,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.MongoCollection.ReplaceOne(ctx, filter, summary, opts); err != nil {
		utils.TrackError("database", "summary_upsert_failed")
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}

	return nil
}

// GetSummary fetches the summary for one (user, date)
func (r *SummaryRepo) GetSummary(ctx context.Context, orgID, userID, date string) (*model.DailySummary, error) {
	timer := utils.TrackDBOperation("find", "daily_summaries")
	defer timer.ObserveDuration()

	filter := bson.M{
		"organization_id": orgID,
		"user_id":         userID,
		"date":            date,
	}

	var summary model.DailySummary
	err := r.MongoCollection.FindOne(ctx, filter).Decode(&summary)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrSummaryNotFound
	}
	if err != nil {
		utils.TrackError("database", "summary_fetch_failed")
		return nil, fmt.Errorf("failed to fetch daily summary: %w", err)
	}
	return &summary, nil
}
