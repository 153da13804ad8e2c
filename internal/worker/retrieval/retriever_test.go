package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name     string
	passages []Passage
	err      error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Search(context.Context, string, int) ([]Passage, error) {
	return a.passages, a.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRetrieve_MergesAndRanks(t *testing.T) {
	semantic := &fakeAdapter{name: "semantic", passages: []Passage{
		{ChunkID: "c1", Score: 0.9, RetrievalMethod: "semantic"},
		{ChunkID: "c2", Score: 0.4, RetrievalMethod: "semantic"},
	}}
	keyword := &fakeAdapter{name: "keyword", passages: []Passage{
		{ChunkID: "c3", Score: 0.7, RetrievalMethod: "keyword"},
	}}

	r := NewRetriever(testLogger(), 5, semantic, keyword)
	got := r.Retrieve(context.Background(), "question")

	require.Len(t, got, 3)
	assert.Equal(t, "c1", got[0].ChunkID)
	assert.Equal(t, "c3", got[1].ChunkID)
	assert.Equal(t, "c2", got[2].ChunkID)
}

func TestRetrieve_FirstAdapterWinsOnDuplicateChunk(t *testing.T) {
	semantic := &fakeAdapter{name: "semantic", passages: []Passage{
		{ChunkID: "c1", Score: 0.9, RetrievalMethod: "semantic"},
	}}
	keyword := &fakeAdapter{name: "keyword", passages: []Passage{
		{ChunkID: "c1", Score: 0.95, RetrievalMethod: "keyword"},
	}}

	r := NewRetriever(testLogger(), 5, semantic, keyword)
	got := r.Retrieve(context.Background(), "question")

	require.Len(t, got, 1)
	assert.Equal(t, "semantic", got[0].RetrievalMethod)
	assert.Equal(t, 0.9, got[0].Score)
}

func TestRetrieve_TruncatesToTopK(t *testing.T) {
	adapter := &fakeAdapter{name: "semantic", passages: []Passage{
		{ChunkID: "c1", Score: 0.9},
		{ChunkID: "c2", Score: 0.8},
		{ChunkID: "c3", Score: 0.7},
	}}

	r := NewRetriever(testLogger(), 2, adapter)
	got := r.Retrieve(context.Background(), "question")

	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ChunkID)
	assert.Equal(t, "c2", got[1].ChunkID)
}

func TestRetrieve_FailingAdapterIsSkipped(t *testing.T) {
	broken := &fakeAdapter{name: "semantic", err: errors.New("service down")}
	keyword := &fakeAdapter{name: "keyword", passages: []Passage{
		{ChunkID: "c1", Score: 0.5},
	}}

	r := NewRetriever(testLogger(), 5, broken, keyword)
	got := r.Retrieve(context.Background(), "question")

	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ChunkID)
}

func TestRetrieve_AllAdaptersFailingYieldsEmpty(t *testing.T) {
	broken := &fakeAdapter{name: "semantic", err: errors.New("service down")}

	r := NewRetriever(testLogger(), 5, broken)
	got := r.Retrieve(context.Background(), "question")

	assert.Empty(t, got)
}
