package retrieval

import (
	"context"
	"log/slog"
	"sort"
)

// Passage is a retrieved unit of source text, transient to one job execution
type Passage struct {
	ChunkID         string
	Text            string
	Score           float64
	SourceID        string
	URL             string
	RetrievalMethod string
}

// SearchAdapter is a ranked passage source. Implementations return their own
// relevance scores; the retriever never re-scores.
type SearchAdapter interface {
	Name() string
	Search(ctx context.Context, question string, topK int) ([]Passage, error)
}

// Retriever merges passages from one or more search adapters. Adapters are
// queried in registration order and the first adapter to return a chunk_id
// wins on collision, so the semantic adapter must be registered first.
type Retriever struct {
	logger   *slog.Logger
	adapters []SearchAdapter
	topK     int
}

// NewRetriever creates a new Retriever over the given adapters
func NewRetriever(logger *slog.Logger, topK int, adapters ...SearchAdapter) *Retriever {
	return &Retriever{
		logger:   logger,
		adapters: adapters,
		topK:     topK,
	}
}

// Retrieve returns up to topK passages ranked by score descending.
// Retrieval is best-effort: a failing adapter contributes zero passages and
// the pipeline continues. An empty result is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) []Passage {
	seen := make(map[string]struct{})
	var merged []Passage

	for _, adapter := range r.adapters {
		passages, err := adapter.Search(ctx, question, r.topK)
		if err != nil {
			r.logger.Error("Search adapter failed, continuing without its results",
				slog.String("adapter", adapter.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}

		r.logger.Debug("Search adapter returned passages",
			slog.String("adapter", adapter.Name()),
			slog.Int("count", len(passages)),
		)

		for _, p := range passages {
			if _, ok := seen[p.ChunkID]; ok {
				continue
			}
			seen[p.ChunkID] = struct{}{}
			merged = append(merged, p)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > r.topK {
		merged = merged[:r.topK]
	}

	if len(merged) == 0 {
		r.logger.Warn("No passages found for question")
	}

	return merged
}
