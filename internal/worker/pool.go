package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/knowledge-assistant/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received job",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.JobID),
				slog.Uint64("delivery_tag", msg.DeliveryTag),
			)

			err := w.processJob(ctx, msg)

			w.acknowledge(msg, workerName, err)
		}
	}
}

// acknowledge settles the delivery after processJob returns. A nil error means
// the job reached a terminal state (or was a duplicate) and the message is
// done; a transient error requeues the delivery for another round.
func (w *Worker) acknowledge(msg *domain.JobMessage, workerName string, err error) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.JobID),
		)
		return
	}

	if err != nil {
		w.logger.Error("Job processing failed",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)

		requeue := domain.IsTransient(err)

		if nackErr := channel.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
			w.logger.Error("Failed to NACK message",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.JobID),
				slog.String("error", nackErr.Error()),
			)
		} else {
			w.logger.Info("Message NACKed",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.JobID),
				slog.Bool("requeue", requeue),
			)
		}
		return
	}

	if ackErr := channel.Ack(msg.DeliveryTag, false); ackErr != nil {
		w.logger.Error("Failed to ACK message",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.JobID),
			slog.String("error", ackErr.Error()),
		)
	} else {
		w.logger.Info("Job settled",
			slog.String("worker_name", workerName),
			slog.String("job_id", msg.JobID),
		)
	}
}
