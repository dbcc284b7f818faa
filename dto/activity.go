package dto

import (
	"main/model"
	"time"
)

type RecordActivityRequest struct {
	Type      string    `json:"type" binding:"required,oneof=active idle"`
	Timestamp time.Time `json:"timestamp" binding:"required"`
}

type ActivityAcceptedResponse struct {
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	ReceivedAt time.Time `json:"received_at"`
}

func ToActivityAcceptedResponse(e *model.ActivityEvent) ActivityAcceptedResponse {
	return ActivityAcceptedResponse{
		EventID:    e.EventID,
		SessionID:  e.SessionID,
		Type:       string(e.Type),
		Timestamp:  e.Timestamp,
		ReceivedAt: e.ReceivedAt,
	}
}
