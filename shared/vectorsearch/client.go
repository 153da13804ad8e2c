package vectorsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds vector search service connection configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Result is a single ranked chunk returned by the search service.
// Score is a similarity score, higher means more relevant.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	SourceURL  string  `json:"source_url,omitempty"`
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResponse struct {
	Results []Result `json:"results"`
}

// Client talks to the semantic search service over HTTP. The service owns
// embedding and similarity internals; this client only submits query text.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new vector search client
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Query submits question text and returns ranked chunks
func (c *Client) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	body, err := json.Marshal(queryRequest{Query: text, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search service returned status %d: %s", resp.StatusCode, string(payload))
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.logger.Debug("Vector search completed",
		slog.Int("top_k", topK),
		slog.Int("results", len(decoded.Results)),
	)

	return decoded.Results, nil
}

// HealthCheck verifies the search service is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search service health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
