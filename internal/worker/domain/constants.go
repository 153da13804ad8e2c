package domain

// Job status constants. Transitions only move forward:
// PENDING → PROCESSING → COMPLETED | FAILED.
const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)
