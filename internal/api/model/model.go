package model

import (
	"database/sql"
	"time"
)

// Job is the database row for a question-answering job. ResultText holds the
// answer for COMPLETED jobs and the failure diagnostic for FAILED ones.
// Sources is the raw JSONB array written by the worker.
type Job struct {
	JobID      string         `db:"job_id"`
	Question   string         `db:"question"`
	Status     string         `db:"status"`
	ResultText sql.NullString `db:"result_text"`
	Sources    []byte         `db:"sources"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}
