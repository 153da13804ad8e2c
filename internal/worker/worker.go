package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/knowledge-assistant/internal/worker/domain"
	"github.com/cuongbtq/knowledge-assistant/internal/worker/generation"
	"github.com/cuongbtq/knowledge-assistant/internal/worker/retrieval"
	"github.com/cuongbtq/knowledge-assistant/internal/worker/storage"
	"github.com/cuongbtq/knowledge-assistant/shared/metrics"
	"github.com/cuongbtq/knowledge-assistant/shared/postgresql"
	"github.com/cuongbtq/knowledge-assistant/shared/rabbitmq"
	"github.com/google/uuid"
)

// JobStore is the durable job state the executor drives. Transition is the
// compare-and-swap guard that makes duplicate delivery safe; see
// storage.Storage for the Postgres implementation.
type JobStore interface {
	Transition(ctx context.Context, jobID string, fromAllowed []string, to string, resultText *string, sources []domain.SourceRef) (bool, error)
}

// PassageRetriever produces ranked context passages for a question
type PassageRetriever interface {
	Retrieve(ctx context.Context, question string) []retrieval.Passage
}

// AnswerProducer turns a question plus passages into a job-ending result
type AnswerProducer interface {
	Answer(ctx context.Context, question string, passages []retrieval.Passage) (*generation.Answer, error)
}

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	DBClient       *postgresql.Client
	RabbitClient   *rabbitmq.Client
	Retriever      PassageRetriever
	Generator      AnswerProducer
	Metrics        *metrics.Collector
	Concurrency    int
	PrefetchCount  int
	JobTimeout     time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	QueueName      string
}

// Worker consumes question jobs from RabbitMQ and drives each one to a
// terminal state
type Worker struct {
	logger       *slog.Logger
	rabbitClient *rabbitmq.Client
	store        JobStore
	retriever    PassageRetriever
	generator    AnswerProducer
	metrics      *metrics.Collector

	workerID      string
	concurrency   int
	prefetchCount int
	queueName     string

	jobTimeout     time.Duration
	maxAttempts    int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration

	jobsChan chan *domain.JobMessage
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])

	return &Worker{
		logger:         cfg.Logger,
		rabbitClient:   cfg.RabbitClient,
		store:          storage.NewStorage(cfg.DBClient.GetDB(), cfg.Logger),
		retriever:      cfg.Retriever,
		generator:      cfg.Generator,
		metrics:        cfg.Metrics,
		workerID:       workerID,
		concurrency:    cfg.Concurrency,
		prefetchCount:  cfg.PrefetchCount,
		queueName:      cfg.QueueName,
		jobTimeout:     cfg.JobTimeout,
		maxAttempts:    cfg.MaxAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		retryMaxDelay:  cfg.RetryMaxDelay,
		jobsChan:       make(chan *domain.JobMessage),
		stopChan:       make(chan struct{}),
	}
}

// Start begins consuming and processing jobs. It blocks until ctx is canceled
// or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("max_attempts", w.maxAttempts),
		slog.Duration("retry_base_delay", w.retryBaseDelay),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...",
		slog.String("worker_id", w.workerID),
	)
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
