package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/knowledge-assistant/internal/api/domain"
	"github.com/cuongbtq/knowledge-assistant/internal/api/dto"
	"github.com/cuongbtq/knowledge-assistant/internal/api/model"
	"github.com/cuongbtq/knowledge-assistant/internal/api/storage"
	"github.com/cuongbtq/knowledge-assistant/shared/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	jobs       map[string]*model.Job
	createErr  error
	failedIDs  []string
	lastFilter storage.JobFilter
	listResult []model.Job
	listErr    error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{jobs: make(map[string]*model.Job)}
}

func (s *fakeStorage) CreateJob(_ context.Context, job *model.Job) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.jobs[job.JobID]; ok {
		return domain.ErrDuplicateJob
	}
	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *fakeStorage) GetJobByID(_ context.Context, jobID string) (*model.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *fakeStorage) MarkJobFailed(_ context.Context, jobID, diagnostic string) error {
	s.failedIDs = append(s.failedIDs, jobID)
	if job, ok := s.jobs[jobID]; ok && !domain.IsTerminal(job.Status) {
		job.Status = domain.JobStatusFailed
		job.ResultText.Valid = true
		job.ResultText.String = diagnostic
	}
	return nil
}

func (s *fakeStorage) ListJobs(_ context.Context, filter storage.JobFilter) ([]model.Job, error) {
	s.lastFilter = filter
	return s.listResult, s.listErr
}

type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (p *fakePublisher) PublishWithRetry(_ context.Context, body []byte, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

func newTestRouter(st JobStorage, pub TaskPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := &AskHandler{
		logger:    slog.New(slog.DiscardHandler),
		storage:   st,
		publisher: pub,
		metrics:   metrics.NewCollector(),
	}

	r := gin.New()
	r.POST("/ask", h.SubmitQuestion)
	r.GET("/ask", h.ListJobs)
	r.GET("/ask/:job_id", h.GetJob)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitQuestion_Accepted(t *testing.T) {
	st := newFakeStorage()
	pub := &fakePublisher{}
	r := newTestRouter(st, pub)

	w := doRequest(r, http.MethodPost, "/ask", `{"question":"How do B-tree indexes work?"}`)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.JobCreateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.JobStatusPending, resp.Status)
	_, err := uuid.Parse(resp.JobID)
	assert.NoError(t, err)

	// the job row exists and the task message carries id + question
	require.Contains(t, st.jobs, resp.JobID)
	require.Len(t, pub.bodies, 1)

	var msg struct {
		JobID    string `json:"job_id"`
		Question string `json:"question"`
	}
	require.NoError(t, json.Unmarshal(pub.bodies[0], &msg))
	assert.Equal(t, resp.JobID, msg.JobID)
	assert.Equal(t, "How do B-tree indexes work?", msg.Question)
}

func TestSubmitQuestion_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing question", `{}`},
		{"empty question", `{"question":""}`},
		{"whitespace question", `{"question":"      "}`},
		{"too short", `{"question":"ab"}`},
		{"not json", `question please`},
		{"too long", `{"question":"` + strings.Repeat("a", 1001) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStorage()
			pub := &fakePublisher{}
			r := newTestRouter(st, pub)

			w := doRequest(r, http.MethodPost, "/ask", tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Empty(t, st.jobs, "invalid requests must not create jobs")
			assert.Empty(t, pub.bodies)
		})
	}
}

func TestSubmitQuestion_PublishFailureFailsJob(t *testing.T) {
	st := newFakeStorage()
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	r := newTestRouter(st, pub)

	w := doRequest(r, http.MethodPost, "/ask", `{"question":"How do B-tree indexes work?"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, st.failedIDs, 1, "unpublishable job must be failed, not left PENDING")
	assert.Equal(t, domain.JobStatusFailed, st.jobs[st.failedIDs[0]].Status)
}

func TestGetJob_InvalidID(t *testing.T) {
	r := newTestRouter(newFakeStorage(), &fakePublisher{})

	w := doRequest(r, http.MethodGet, "/ask/not-a-uuid", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	r := newTestRouter(newFakeStorage(), &fakePublisher{})

	w := doRequest(r, http.MethodGet, "/ask/"+uuid.New().String(), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJob_Pending(t *testing.T) {
	st := newFakeStorage()
	id := uuid.New().String()
	now := time.Now().UTC()
	st.jobs[id] = &model.Job{
		JobID:     id,
		Question:  "What is WAL?",
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r := newTestRouter(st, &fakePublisher{})

	w := doRequest(r, http.MethodGet, "/ask/"+id, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.JobResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.JobStatusPending, resp.Status)
	assert.Nil(t, resp.Answer)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.ProcessingTimeSeconds)
}

func TestGetJob_Completed(t *testing.T) {
	st := newFakeStorage()
	id := uuid.New().String()
	created := time.Now().UTC().Add(-3 * time.Second)

	sources, err := json.Marshal([]dto.SourceDocument{
		{SourceID: "doc-1", ChunkID: "c1", RelevanceScore: 0.9, URL: "https://example.com"},
	})
	require.NoError(t, err)

	job := &model.Job{
		JobID:     id,
		Question:  "What is WAL?",
		Status:    domain.JobStatusCompleted,
		Sources:   sources,
		CreatedAt: created,
		UpdatedAt: created.Add(3 * time.Second),
	}
	job.ResultText.Valid = true
	job.ResultText.String = "Write-ahead logging. [Source: doc-1, Chunk: c1]"
	st.jobs[id] = job

	r := newTestRouter(st, &fakePublisher{})
	w := doRequest(r, http.MethodGet, "/ask/"+id, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.JobResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, domain.JobStatusCompleted, resp.Status)
	require.NotNil(t, resp.Answer)
	assert.Contains(t, *resp.Answer, "Write-ahead logging")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "c1", resp.Sources[0].ChunkID)
	require.NotNil(t, resp.ProcessingTimeSeconds)
	assert.InDelta(t, 3.0, *resp.ProcessingTimeSeconds, 0.01)
	assert.Nil(t, resp.Error)
}

func TestGetJob_Failed(t *testing.T) {
	st := newFakeStorage()
	id := uuid.New().String()
	now := time.Now().UTC()

	job := &model.Job{
		JobID:     id,
		Question:  "What is WAL?",
		Status:    domain.JobStatusFailed,
		CreatedAt: now.Add(-time.Second),
		UpdatedAt: now,
	}
	job.ResultText.Valid = true
	job.ResultText.String = "Processing failed after 3 attempts: llm unavailable"
	st.jobs[id] = job

	r := newTestRouter(st, &fakePublisher{})
	w := doRequest(r, http.MethodGet, "/ask/"+id, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.JobResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, domain.JobStatusFailed, resp.Status)
	assert.Nil(t, resp.Answer)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "after 3 attempts")
	assert.NotNil(t, resp.ProcessingTimeSeconds)
}

func TestListJobs_Pagination(t *testing.T) {
	st := newFakeStorage()
	now := time.Now().UTC()

	// three rows returned for page_size=2 means one more page exists
	st.listResult = []model.Job{
		{JobID: uuid.New().String(), Question: "q1", Status: domain.JobStatusCompleted, CreatedAt: now, UpdatedAt: now},
		{JobID: uuid.New().String(), Question: "q2", Status: domain.JobStatusPending, CreatedAt: now.Add(-time.Minute), UpdatedAt: now.Add(-time.Minute)},
		{JobID: uuid.New().String(), Question: "q3", Status: domain.JobStatusPending, CreatedAt: now.Add(-2 * time.Minute), UpdatedAt: now.Add(-2 * time.Minute)},
	}

	r := newTestRouter(st, &fakePublisher{})
	w := doRequest(r, http.MethodGet, "/ask?page_size=2", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Jobs, 2)
	assert.NotEmpty(t, resp.NextCursor)
	assert.Equal(t, 2, st.lastFilter.PageSize)

	// the cursor must decode back to the last row on the page
	cursor, err := DecodeJobCursor(resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, resp.Jobs[1].JobID, cursor.JobID)
}

func TestListJobs_StatusFilter(t *testing.T) {
	st := newFakeStorage()
	r := newTestRouter(st, &fakePublisher{})

	w := doRequest(r, http.MethodGet, "/ask?status=COMPLETED", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.JobStatusCompleted, st.lastFilter.Status)

	w = doRequest(r, http.MethodGet, "/ask?status=BOGUS", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListJobs_InvalidCursor(t *testing.T) {
	r := newTestRouter(newFakeStorage(), &fakePublisher{})

	w := doRequest(r, http.MethodGet, "/ask?cursor=%21%21not-base64", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
