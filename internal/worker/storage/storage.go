package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/knowledge-assistant/internal/worker/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Transition applies a compare-and-swap status update. The row is mutated only
// if its current status is in fromAllowed; otherwise nothing changes and the
// first return value is false. A false result is not an error: it means
// another delivery already advanced the job, typically to a terminal state.
//
// resultText and sources, when non-nil, are written together with the new
// status. updated_at is bumped on every successful transition.
func (s *Storage) Transition(
	ctx context.Context,
	jobID string,
	fromAllowed []string,
	to string,
	resultText *string,
	sources []domain.SourceRef,
) (bool, error) {
	var sourcesJSON []byte
	if sources != nil {
		var err error
		sourcesJSON, err = json.Marshal(sources)
		if err != nil {
			return false, fmt.Errorf("failed to marshal sources: %w", err)
		}
	}

	query := `
		UPDATE jobs
		SET status = $1,
		    result_text = COALESCE($2, result_text),
		    sources = COALESCE($3, sources),
		    updated_at = NOW()
		WHERE job_id = $4
		  AND status = ANY($5)
	`

	result, err := s.db.ExecContext(ctx, query, to, resultText, sourcesJSON, jobID, pq.Array(fromAllowed))
	if err != nil {
		return false, fmt.Errorf("failed to transition job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Debug("Job transition rejected - status not in allowed set",
			slog.String("job_id", jobID),
			slog.String("to", to),
		)
		return false, nil
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", to),
	)

	return true, nil
}
