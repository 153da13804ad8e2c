package retrieval

import (
	"context"
	"fmt"

	"github.com/cuongbtq/knowledge-assistant/shared/vectorsearch"
)

// VectorQuerier is the part of the vector search client the adapter needs
type VectorQuerier interface {
	Query(ctx context.Context, text string, topK int) ([]vectorsearch.Result, error)
}

// SemanticSearcher adapts the vector search service to the SearchAdapter
// interface
type SemanticSearcher struct {
	client VectorQuerier
}

// NewSemanticSearcher creates a semantic search adapter
func NewSemanticSearcher(client VectorQuerier) *SemanticSearcher {
	return &SemanticSearcher{client: client}
}

// Name identifies this adapter in logs
func (s *SemanticSearcher) Name() string {
	return "semantic"
}

// Search queries the vector search service and maps results to passages
func (s *SemanticSearcher) Search(ctx context.Context, question string, topK int) ([]Passage, error) {
	results, err := s.client.Query(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	passages := make([]Passage, 0, len(results))
	for _, res := range results {
		passages = append(passages, Passage{
			ChunkID:         res.ChunkID,
			Text:            res.Text,
			Score:           res.Score,
			SourceID:        res.DocumentID,
			URL:             res.SourceURL,
			RetrievalMethod: "semantic",
		})
	}

	return passages, nil
}
