package generation

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/cuongbtq/knowledge-assistant/internal/worker/domain"
	"github.com/cuongbtq/knowledge-assistant/internal/worker/retrieval"
	"github.com/cuongbtq/knowledge-assistant/shared/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	text   string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func newGenerator(llm TextGenerator) *AnswerGenerator {
	return NewAnswerGenerator(slog.New(slog.DiscardHandler), llm)
}

func TestAnswer_Success(t *testing.T) {
	llm := &fakeLLM{text: "Indexes speed up lookups. [Source: doc-1, Chunk: c1]"}
	g := newGenerator(llm)

	passages := []retrieval.Passage{
		{ChunkID: "c1", SourceID: "doc-1", Score: 0.9, Text: "An index is a data structure...", URL: "https://example.com/doc-1"},
	}

	answer, err := g.Answer(context.Background(), "What is an index?", passages)

	require.NoError(t, err)
	assert.Equal(t, llm.text, answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, domain.SourceRef{
		SourceID:       "doc-1",
		ChunkID:        "c1",
		RelevanceScore: 0.9,
		URL:            "https://example.com/doc-1",
	}, answer.Sources[0])
}

func TestAnswer_PromptContainsPassagesAndCitationFormat(t *testing.T) {
	llm := &fakeLLM{text: "ok"}
	g := newGenerator(llm)

	passages := []retrieval.Passage{
		{ChunkID: "c1", SourceID: "doc-1", Text: "chunk one text"},
		{ChunkID: "c2", SourceID: "doc-2", Text: "chunk two text"},
	}

	_, err := g.Answer(context.Background(), "What is an index?", passages)
	require.NoError(t, err)

	assert.Contains(t, llm.prompt, "[Context Passage - Source: doc-1, Chunk ID: c1]")
	assert.Contains(t, llm.prompt, "chunk two text")
	assert.Contains(t, llm.prompt, "QUESTION: What is an index?")
	assert.Contains(t, llm.prompt, "cite it inline")
}

func TestAnswer_FallbackPromptWithoutPassages(t *testing.T) {
	llm := &fakeLLM{text: "No supporting context was found."}
	g := newGenerator(llm)

	answer, err := g.Answer(context.Background(), "What is an index?", nil)

	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, llm.prompt, "No context documents were found")
	assert.NotContains(t, llm.prompt, "CONTEXT PASSAGES START")
}

func TestAnswer_BlockedPromptIsPermanent(t *testing.T) {
	llm := &fakeLLM{err: gemini.ErrBlocked}
	g := newGenerator(llm)

	_, err := g.Answer(context.Background(), "question", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnswerRejected)
	assert.False(t, domain.IsTransient(err))
}

func TestAnswer_EmptyCompletionIsPermanent(t *testing.T) {
	llm := &fakeLLM{err: gemini.ErrEmptyCompletion}
	g := newGenerator(llm)

	_, err := g.Answer(context.Background(), "question", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
	assert.False(t, domain.IsTransient(err))
}

func TestAnswer_WhitespaceTextIsEmptyAnswer(t *testing.T) {
	llm := &fakeLLM{text: "   \n\t"}
	g := newGenerator(llm)

	_, err := g.Answer(context.Background(), "question", nil)

	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestAnswer_OtherErrorsAreTransient(t *testing.T) {
	llm := &fakeLLM{err: errors.New("429 resource exhausted")}
	g := newGenerator(llm)

	_, err := g.Answer(context.Background(), "question", nil)

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
