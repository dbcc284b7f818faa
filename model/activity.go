package model

import "time"

type ActivityType string

const (
	ActivityActive ActivityType = "active"
	ActivityIdle   ActivityType = "idle"
)

// ActivityEvent is a timestamped pulse classifying a sub-interval of a
// session as active or idle. Events are immutable once written and ordered
// for aggregation by (Timestamp, ReceivedAt); ReceivedAt is assigned by the
// store and used only as a tiebreaker, never as the event's logical time.
type ActivityEvent struct {
	EventID    string       `bson:"_id" json:"event_id"`
	SessionID  string       `bson:"session_id" json:"session_id"`
	UserID     string       `bson:"user_id" json:"user_id"`
	Type       ActivityType `bson:"type" json:"type"`
	Timestamp  time.Time    `bson:"timestamp" json:"timestamp"`
	ReceivedAt time.Time    `bson:"received_at" json:"received_at"`
}

func (t ActivityType) Valid() bool {
	return t == ActivityActive || t == ActivityIdle
}
