package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/knowledge-assistant/internal/worker/domain"
	"github.com/cuongbtq/knowledge-assistant/internal/worker/retrieval"
	"github.com/cuongbtq/knowledge-assistant/shared/gemini"
)

var (
	// ErrEmptyAnswer means generation produced no usable text. A job must end
	// FAILED in that case, never COMPLETED with a placeholder sentence.
	ErrEmptyAnswer = errors.New("answer generation produced no text")

	// ErrAnswerRejected means the model refused the prompt; not retryable
	ErrAnswerRejected = errors.New("answer generation rejected the prompt")
)

// TextGenerator produces a completion for a prompt. Implementations signal
// terminal conditions with gemini.ErrBlocked / gemini.ErrEmptyCompletion;
// every other error is treated as transient.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answer is a successful generation outcome ready to persist on the job
type Answer struct {
	Text    string
	Sources []domain.SourceRef
}

// AnswerGenerator builds the prompt for a question and its retrieved context
// and maps the model outcome to a job-ending result.
type AnswerGenerator struct {
	logger *slog.Logger
	llm    TextGenerator
}

// NewAnswerGenerator creates a new AnswerGenerator
func NewAnswerGenerator(logger *slog.Logger, llm TextGenerator) *AnswerGenerator {
	return &AnswerGenerator{
		logger: logger,
		llm:    llm,
	}
}

// Answer generates an answer for the question from the given passages.
// Transient downstream failures come back wrapped in domain.TransientError so
// the executor can retry; ErrEmptyAnswer and ErrAnswerRejected are permanent.
func (g *AnswerGenerator) Answer(ctx context.Context, question string, passages []retrieval.Passage) (*Answer, error) {
	prompt := buildPrompt(question, passages)

	g.logger.Debug("Invoking text generation",
		slog.Int("passages", len(passages)),
		slog.Int("prompt_length", len(prompt)),
	)

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		switch {
		case errors.Is(err, gemini.ErrBlocked):
			return nil, fmt.Errorf("%w: %v", ErrAnswerRejected, err)
		case errors.Is(err, gemini.ErrEmptyCompletion):
			return nil, ErrEmptyAnswer
		default:
			return nil, domain.NewTransientError(fmt.Errorf("text generation failed: %w", err))
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyAnswer
	}

	sources := make([]domain.SourceRef, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, domain.SourceRef{
			SourceID:       p.SourceID,
			ChunkID:        p.ChunkID,
			RelevanceScore: p.Score,
			URL:            p.URL,
		})
	}

	return &Answer{
		Text:    text,
		Sources: sources,
	}, nil
}

// buildPrompt embeds the passages as tagged context blocks. With no passages
// it falls back to a prompt that tells the model to say no context was found.
func buildPrompt(question string, passages []retrieval.Passage) string {
	if len(passages) == 0 {
		return fmt.Sprintf(
			"You are a helpful technical assistant. No context documents were "+
				"found for the question below. Answer from general knowledge and "+
				"clearly state that no supporting context was found.\n\n"+
				"QUESTION: %s\n",
			question,
		)
	}

	var b strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&b, "[Context Passage - Source: %s, Chunk ID: %s]\n%s\n\n", p.SourceID, p.ChunkID, p.Text)
	}

	return fmt.Sprintf(
		"You are a helpful technical assistant. Answer the question below using "+
			"only the provided context passages. Do not use outside knowledge. If "+
			"the passages do not contain the answer, say so. When you use a "+
			"passage, cite it inline as [Source: <source_id>, Chunk: <chunk_id>]. "+
			"Be concise and factual.\n\n"+
			"--- CONTEXT PASSAGES START ---\n"+
			"%s--- CONTEXT PASSAGES END ---\n\n"+
			"QUESTION: %s\n",
		b.String(),
		question,
	)
}
