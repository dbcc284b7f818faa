package model

import "errors"

// Error taxonomy shared by repositories and services. Handlers map these to
// HTTP statuses with errors.Is.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrForbidden           = errors.New("session does not belong to caller")
	ErrAlreadyRunning      = errors.New("a running session already exists for this user")
	ErrInvalidState        = errors.New("session is not running")
	ErrOutOfRangeTimestamp = errors.New("event timestamp outside session bounds")
	ErrConflict            = errors.New("aggregation conflict: retries exhausted")
	ErrSummaryNotFound     = errors.New("daily summary not found")
)
