package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/knowledge-assistant/internal/worker/domain"
	"github.com/cuongbtq/knowledge-assistant/internal/worker/generation"
)

// processJob drives one delivered job to a terminal state.
//
// A nil return means the delivery is settled: the job reached COMPLETED or
// FAILED, or another consumer already finished it. A transient error return
// means the delivery should be requeued and the whole job retried later; the
// claim transition keeps that safe because PROCESSING is a legal from-state.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	start := time.Now()

	// Claim the job. PROCESSING is included in the allowed from-set so a
	// redelivered message can re-enter a job that crashed mid-flight.
	claimed, err := w.store.Transition(ctx, msg.JobID,
		[]string{domain.JobStatusPending, domain.JobStatusProcessing},
		domain.JobStatusProcessing, nil, nil)
	if err != nil {
		return domain.NewTransientError(fmt.Errorf("failed to claim job: %w", err))
	}

	if !claimed {
		// Terminal already: redelivery of a finished job. Ack and move on.
		w.logger.Warn("Job already in terminal state, skipping redelivery",
			slog.String("job_id", msg.JobID),
		)
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(w.retryBaseDelay, attempt-1, w.retryMaxDelay)
			w.logger.Warn("Retrying job after transient failure",
				slog.String("job_id", msg.JobID),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			w.metrics.RecordRetry()

			select {
			case <-time.After(delay):
			case <-jobCtx.Done():
				return w.failJob(ctx, msg.JobID, start,
					fmt.Sprintf("Processing timed out after %s", w.jobTimeout))
			}
		}

		answer, err := w.runAttempt(jobCtx, msg)
		if err == nil {
			return w.completeJob(ctx, msg.JobID, start, answer)
		}

		switch {
		case errors.Is(err, generation.ErrAnswerRejected):
			return w.failJob(ctx, msg.JobID, start,
				"The question could not be answered because the model rejected the prompt.")
		case errors.Is(err, generation.ErrEmptyAnswer):
			return w.failJob(ctx, msg.JobID, start,
				"Answer generation produced no text.")
		case jobCtx.Err() != nil:
			return w.failJob(ctx, msg.JobID, start,
				fmt.Sprintf("Processing timed out after %s", w.jobTimeout))
		case domain.IsTransient(err):
			lastErr = err
		default:
			// Unclassified errors are terminal; retrying blind wastes quota
			return w.failJob(ctx, msg.JobID, start,
				fmt.Sprintf("Processing failed: %s", err.Error()))
		}
	}

	w.logger.Error("Job exhausted all attempts",
		slog.String("job_id", msg.JobID),
		slog.Int("max_attempts", w.maxAttempts),
		slog.String("error", lastErr.Error()),
	)

	return w.failJob(ctx, msg.JobID, start,
		fmt.Sprintf("Processing failed after %d attempts: %s", w.maxAttempts, lastErr.Error()))
}

// runAttempt executes one retrieval + generation pass
func (w *Worker) runAttempt(ctx context.Context, msg *domain.JobMessage) (*generation.Answer, error) {
	passages := w.retriever.Retrieve(ctx, msg.Question)

	w.logger.Debug("Retrieved context passages",
		slog.String("job_id", msg.JobID),
		slog.Int("count", len(passages)),
	)

	return w.generator.Answer(ctx, msg.Question, passages)
}

// completeJob persists the answer with a PROCESSING → COMPLETED transition
func (w *Worker) completeJob(ctx context.Context, jobID string, start time.Time, answer *generation.Answer) error {
	ok, err := w.store.Transition(ctx, jobID,
		[]string{domain.JobStatusProcessing},
		domain.JobStatusCompleted, &answer.Text, answer.Sources)
	if err != nil {
		// Work is done but not persisted; requeue and let the next delivery
		// reclaim the still-PROCESSING job
		return domain.NewTransientError(fmt.Errorf("failed to persist result: %w", err))
	}

	if !ok {
		w.logger.Warn("Lost completion race, another consumer finished the job",
			slog.String("job_id", jobID),
		)
		return nil
	}

	w.metrics.RecordCompleted(time.Since(start))
	w.logger.Info("Job completed",
		slog.String("job_id", jobID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("sources", len(answer.Sources)),
	)
	return nil
}

// failJob records a terminal failure with the given operator-safe diagnostic.
// The diagnostic is stored as the job's result text; raw provider errors stay
// in the logs only.
func (w *Worker) failJob(ctx context.Context, jobID string, start time.Time, diagnostic string) error {
	ok, err := w.store.Transition(ctx, jobID,
		[]string{domain.JobStatusPending, domain.JobStatusProcessing},
		domain.JobStatusFailed, &diagnostic, nil)
	if err != nil {
		return domain.NewTransientError(fmt.Errorf("failed to mark job failed: %w", err))
	}

	if ok {
		w.metrics.RecordFailed(time.Since(start))
		w.logger.Error("Job failed",
			slog.String("job_id", jobID),
			slog.String("diagnostic", diagnostic),
		)
	}
	return nil
}

// backoffDelay returns the delay before attempt n+1 given n prior failures:
// base, 2*base, 4*base, ... capped at max.
func backoffDelay(base time.Duration, attempt int, max time.Duration) time.Duration {
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}
