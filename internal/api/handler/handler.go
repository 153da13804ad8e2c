package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/knowledge-assistant/internal/api/model"
	"github.com/cuongbtq/knowledge-assistant/internal/api/storage"
	"github.com/cuongbtq/knowledge-assistant/shared/metrics"
	"github.com/cuongbtq/knowledge-assistant/shared/postgresql"
	"github.com/cuongbtq/knowledge-assistant/shared/rabbitmq"
)

// JobStorage is the persistence surface the handlers need
type JobStorage interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	MarkJobFailed(ctx context.Context, jobID, diagnostic string) error
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
}

// TaskPublisher enqueues a task message for the worker
type TaskPublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	Metrics      *metrics.Collector
}

// AskHandler handles question submission and result retrieval
type AskHandler struct {
	logger    *slog.Logger
	storage   JobStorage
	publisher TaskPublisher
	metrics   *metrics.Collector
}

// NewAskHandler creates a new AskHandler instance
func NewAskHandler(deps *Dependencies) *AskHandler {
	return &AskHandler{
		logger:    deps.Logger,
		storage:   storage.NewStorage(deps.DBClient),
		publisher: deps.RabbitClient,
		metrics:   deps.Metrics,
	}
}
