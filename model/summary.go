package model

import "time"

// DailySummary holds the rolled-up totals for one user on one calendar day.
// Rollup is the only writer; re-running it for the same day converges to the
// same totals because they are recomputed from scratch each pass.
type DailySummary struct {
	OrganizationID    string    `bson:"organization_id" json:"organization_id"`
	UserID            string    `bson:"user_id" json:"user_id"`
	Date              string    `bson:"date" json:"date"`
	TotalWorkSeconds  int64     `bson:"total_work_seconds" json:"total_work_seconds"`
	TotalIdleSeconds  int64     `bson:"total_idle_seconds" json:"total_idle_seconds"`
	ProductivityScore float64   `bson:"productivity_score" json:"productivity_score"`
	SessionCount      int       `bson:"session_count" json:"session_count"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}
