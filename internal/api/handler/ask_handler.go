package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/knowledge-assistant/internal/api/domain"
	"github.com/cuongbtq/knowledge-assistant/internal/api/dto"
	"github.com/cuongbtq/knowledge-assistant/internal/api/model"
	"github.com/cuongbtq/knowledge-assistant/internal/api/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// taskMessage is the wire form published to the task queue
type taskMessage struct {
	JobID    string `json:"job_id"`
	Question string `json:"question"`
}

// SubmitQuestion handles POST /ask
// Accepts a question, persists a PENDING job and enqueues it for the worker
func (h *AskHandler) SubmitQuestion(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Rejected ask request", slog.String("error", err.Error()))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "question is required and must be between 3 and 1000 characters",
		})
		return
	}

	question := strings.TrimSpace(req.Question)
	if len(question) < 3 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "question must not be blank",
		})
		return
	}

	now := time.Now().UTC()
	job := model.Job{
		JobID:     uuid.New().String(),
		Question:  question,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.storage.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	body, err := json.Marshal(taskMessage{JobID: job.JobID, Question: job.Question})
	if err != nil {
		h.logger.Error("Failed to marshal task message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	if err := h.publisher.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish task message",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		// The row exists but no worker will ever see it; fail it so the client
		// is not left polling a job that cannot progress
		if failErr := h.storage.MarkJobFailed(c.Request.Context(), job.JobID, "Failed to enqueue job for processing"); failErr != nil {
			h.logger.Error("Failed to mark unpublishable job as failed",
				slog.String("job_id", job.JobID),
				slog.String("error", failErr.Error()),
			)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	h.metrics.RecordSubmitted()
	h.logger.Info("Question accepted",
		slog.String("job_id", job.JobID),
		slog.Int("question_length", len(job.Question)),
	)

	c.JSON(http.StatusAccepted, dto.JobCreateResponse{
		JobID:     job.JobID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	})
}

// GetJob handles GET /ask/:job_id
// Returns the current status of a job, with the answer once COMPLETED
func (h *AskHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Warn("Invalid job_id format", slog.String("job_id", jobID))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	resp := dto.JobResultResponse{
		JobID:     job.JobID,
		Question:  job.Question,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}

	if domain.IsTerminal(job.Status) {
		seconds := job.UpdatedAt.Sub(job.CreatedAt).Seconds()
		resp.ProcessingTimeSeconds = &seconds
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		if job.ResultText.Valid {
			resp.Answer = &job.ResultText.String
		}
		if len(job.Sources) > 0 {
			var sources []dto.SourceDocument
			if err := json.Unmarshal(job.Sources, &sources); err != nil {
				h.logger.Error("Failed to decode job sources",
					slog.String("job_id", job.JobID),
					slog.String("error", err.Error()),
				)
			} else {
				resp.Sources = sources
			}
		}
	case domain.JobStatusFailed:
		if job.ResultText.Valid {
			resp.Error = &job.ResultText.String
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListJobs handles GET /ask
// Lists jobs with optional status filtering and cursor pagination
func (h *AskHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Status != "" {
		switch req.Status {
		case domain.JobStatusPending, domain.JobStatusProcessing,
			domain.JobStatusCompleted, domain.JobStatusFailed:
		default:
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "unknown status filter",
			})
			return
		}
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	summaries := make([]dto.JobSummary, len(jobs))
	for i, job := range jobs {
		summaries[i] = dto.JobSummary{
			JobID:     job.JobID,
			Question:  job.Question,
			Status:    job.Status,
			CreatedAt: job.CreatedAt.Format(time.RFC3339),
			UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor, err = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       summaries,
		NextCursor: nextCursor,
	})
}
