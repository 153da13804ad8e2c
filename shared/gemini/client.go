package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

var (
	// ErrEmptyCompletion is returned when the model produces no usable text
	ErrEmptyCompletion = errors.New("model returned no text")

	// ErrBlocked is returned when the model refuses the prompt on safety grounds
	ErrBlocked = errors.New("completion blocked by safety filters")
)

// Config holds Gemini API configuration
type Config struct {
	APIKey          string
	Model           string
	MaxOutputTokens int32
	Temperature     float32
	TopP            float32
	Timeout         time.Duration
}

// Client wraps the Gemini API for plain text completion
type Client struct {
	config *Config
	client *genai.Client
	logger *slog.Logger
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key cannot be empty")
	}

	if config.Model == "" {
		return nil, fmt.Errorf("gemini model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized",
		slog.String("model", config.Model),
		slog.Int("max_output_tokens", int(config.MaxOutputTokens)),
	)

	return &Client{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// Generate sends a prompt and returns the completion text.
// API and connectivity errors come back wrapped and are retryable by the
// caller; ErrBlocked and ErrEmptyCompletion are terminal for the prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.config.Temperature),
		TopP:            genai.Ptr(c.config.TopP),
		MaxOutputTokens: c.config.MaxOutputTokens,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), genConfig)
	if err != nil {
		c.logger.Error("Gemini API call failed",
			slog.String("model", c.config.Model),
			slog.Any("error", err),
		)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyCompletion
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", ErrBlocked
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("Gemini completion received",
		slog.String("model", c.config.Model),
		slog.Int("length", len(text)),
	)

	return text, nil
}
