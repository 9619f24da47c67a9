package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an asynchronous match job.
// Transitions: running -> completed | error. Terminal states never change.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// IsTerminal returns true for completed and error states.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// MatchJob tracks one in-flight or finished asynchronous matching
// operation. Jobs are process-lifetime-scoped and garbage-collected after a
// fixed retention window regardless of terminal state.
type MatchJob struct {
	ID          uuid.UUID  `json:"id"`
	Status      JobStatus  `json:"status"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
