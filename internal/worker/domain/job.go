package domain

// JobMessage represents a work item delivered from RabbitMQ. The question
// travels with the message so the worker never needs to read the job record
// before processing.
type JobMessage struct {
	JobID       string `json:"job_id"`
	Question    string `json:"question"`
	DeliveryTag uint64 `json:"-"`
}

// SourceRef is the persisted subset of a retrieved passage, embedded in the
// completed job record as a JSON array.
type SourceRef struct {
	SourceID       string  `json:"source_id"`
	ChunkID        string  `json:"chunk_id"`
	RelevanceScore float64 `json:"relevance_score"`
	URL            string  `json:"url,omitempty"`
}
