package dto

import (
	"main/model"
	"time"
)

type StartSessionRequest struct {
	ProjectID   string `json:"project_id"`
	Task        string `json:"task" binding:"max=200"`
	Description string `json:"description" binding:"max=2000"`
}

type ListSessionsQuery struct {
	Date string `form:"date" binding:"required,datekey"`
}

type SessionResponse struct {
	ID              string     `json:"session_id"`
	OrganizationID  string     `json:"organization_id"`
	UserID          string     `json:"user_id"`
	ProjectID       string     `json:"project_id,omitempty"`
	Task            string     `json:"task,omitempty"`
	Description     string     `json:"description,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Date            string     `json:"date"`
	DurationSeconds int64      `json:"duration_seconds"`
	ActiveSeconds   int64      `json:"active_seconds"`
	IdleSeconds     int64      `json:"idle_seconds"`
	Status          string     `json:"status"`
	Version         int64      `json:"version"`
}

// Convert model.Session to SessionResponse
func ToSessionResponse(s *model.Session) SessionResponse {
	return SessionResponse{
		ID:              s.SessionID,
		OrganizationID:  s.OrganizationID,
		UserID:          s.UserID,
		ProjectID:       s.ProjectID,
		Task:            s.Task,
		Description:     s.Description,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		Date:            s.Date,
		DurationSeconds: s.DurationSecs,
		ActiveSeconds:   s.ActiveSecs,
		IdleSeconds:     s.IdleSecs,
		Status:          string(s.Status),
		Version:         s.Version,
	}
}

// Convert slice of model.Session to slice of SessionResponse
func ToSessionResponses(sessions []*model.Session) []SessionResponse {
	responses := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = ToSessionResponse(s)
	}
	return responses
}
