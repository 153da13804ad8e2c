package domain

import "errors"

// Job status constants, shared with the worker through the database
const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

var (
	// ErrJobNotFound is returned when a job_id has no row
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when an insert collides on job_id
	ErrDuplicateJob = errors.New("job already exists")
)

// IsTerminal reports whether a status can never change again
func IsTerminal(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}
