package dto

import (
	"main/model"
	"time"
)

type SummaryResponse struct {
	OrganizationID    string    `json:"organization_id"`
	UserID            string    `json:"user_id"`
	Date              string    `json:"date"`
	TotalWorkSeconds  int64     `json:"total_work_seconds"`
	TotalIdleSeconds  int64     `json:"total_idle_seconds"`
	ProductivityScore float64   `json:"productivity_score"`
	SessionCount      int       `json:"session_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func ToSummaryResponse(s *model.DailySummary) SummaryResponse {
	return SummaryResponse{
		OrganizationID:    s.OrganizationID,
		UserID:            s.UserID,
		Date:              s.Date,
		TotalWorkSeconds:  s.TotalWorkSeconds,
		TotalIdleSeconds:  s.TotalIdleSeconds,
		ProductivityScore: s.ProductivityScore,
		SessionCount:      s.SessionCount,
		UpdatedAt:         s.UpdatedAt,
	}
}
