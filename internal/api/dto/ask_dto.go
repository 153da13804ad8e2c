package dto

// AskRequest is the body of POST /ask
type AskRequest struct {
	Question string `json:"question" binding:"required,min=3,max=1000"`
}

// JobCreateResponse is returned with 202 Accepted after a job is enqueued
type JobCreateResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// SourceDocument is one cited passage in a completed answer
type SourceDocument struct {
	SourceID       string  `json:"source_id"`
	ChunkID        string  `json:"chunk_id"`
	RelevanceScore float64 `json:"relevance_score"`
	URL            string  `json:"url,omitempty"`
}

// JobResultResponse is the body of GET /ask/:job_id. Answer and Sources are
// present only for COMPLETED jobs; Error only for FAILED ones.
// ProcessingTimeSeconds is filled once the job is terminal.
type JobResultResponse struct {
	JobID                 string           `json:"job_id"`
	Question              string           `json:"question"`
	Status                string           `json:"status"`
	Answer                *string          `json:"answer,omitempty"`
	Sources               []SourceDocument `json:"sources,omitempty"`
	Error                 *string          `json:"error,omitempty"`
	CreatedAt             string           `json:"created_at"`
	UpdatedAt             string           `json:"updated_at"`
	ProcessingTimeSeconds *float64         `json:"processing_time_seconds,omitempty"`
}

// ListJobsRequest holds the query parameters of GET /ask
type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ListJobsResponse is a cursor-paginated page of jobs
type ListJobsResponse struct {
	Jobs       []JobSummary `json:"jobs"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// JobSummary is the list view of a job; results are fetched per job
type JobSummary struct {
	JobID     string `json:"job_id"`
	Question  string `json:"question"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
