package retrieval

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// KeywordSearcher runs full-text search over the ingested chunks table. It is
// the secondary, best-effort complement to the semantic adapter.
type KeywordSearcher struct {
	db *sqlx.DB
}

// NewKeywordSearcher creates a keyword search adapter
func NewKeywordSearcher(db *sqlx.DB) *KeywordSearcher {
	return &KeywordSearcher{db: db}
}

// Name identifies this adapter in logs
func (s *KeywordSearcher) Name() string {
	return "keyword"
}

// Search ranks chunks by full-text relevance against the question
func (s *KeywordSearcher) Search(ctx context.Context, question string, topK int) ([]Passage, error) {
	query := `
		SELECT chunk_id,
		       document_id,
		       text,
		       source_url,
		       ts_rank(text_tsv, plainto_tsquery('english', $1)) AS score
		FROM chunks
		WHERE text_tsv @@ plainto_tsquery('english', $1)
		ORDER BY score DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, question, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var p Passage
		var sourceURL sql.NullString

		if err := rows.Scan(&p.ChunkID, &p.SourceID, &p.Text, &sourceURL, &p.Score); err != nil {
			return nil, fmt.Errorf("keyword search scan: %w", err)
		}

		if sourceURL.Valid {
			p.URL = sourceURL.String
		}
		p.RetrievalMethod = "keyword"
		passages = append(passages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keyword search rows: %w", err)
	}

	return passages, nil
}
