package model

import "time"

type SessionStatus string

const (
	StatusRunning SessionStatus = "running"
	StatusStopped SessionStatus = "stopped"
)

// Session is one continuous tracked period of work for a user. The derived
// fields (duration, active/idle split) are owned by the aggregation engine
// and are only ever written together with a version bump.
type Session struct {
	SessionID      string        `bson:"_id" json:"session_id"`
	OrganizationID string        `bson:"organization_id" json:"organization_id"`
	UserID         string        `bson:"user_id" json:"user_id"`
	ProjectID      string        `bson:"project_id,omitempty" json:"project_id,omitempty"`
	Task           string        `bson:"task,omitempty" json:"task,omitempty"`
	Description    string        `bson:"description,omitempty" json:"description,omitempty"`
	StartTime      time.Time     `bson:"start_time" json:"start_time"`
	EndTime        *time.Time    `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Date           string        `bson:"date" json:"date"` // calendar day of StartTime, UTC, YYYY-MM-DD
	DurationSecs   int64         `bson:"duration_seconds" json:"duration_seconds"`
	ActiveSecs     int64         `bson:"active_seconds" json:"active_seconds"`
	IdleSecs       int64         `bson:"idle_seconds" json:"idle_seconds"`
	Status         SessionStatus `bson:"status" json:"status"`
	Version        int64         `bson:"version" json:"version"`
	NeedsRecompute bool          `bson:"needs_recompute,omitempty" json:"-"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updated_at"`
}

func (s *Session) IsRunning() bool {
	return s.Status == StatusRunning
}

// Endpoint returns the upper bound of the session's timeline: the stop time
// once stopped, otherwise the caller's notion of now.
func (s *Session) Endpoint(now time.Time) time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return now
}

// DateKey formats a timestamp as the UTC calendar-day key used by sessions
// and daily summaries. Stored as a plain string so the (user_id, date)
// indexes compare bytewise.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
