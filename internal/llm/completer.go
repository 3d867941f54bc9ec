// Package llm adapts OpenAI-compatible chat completion APIs to the single
// prompt-in, text-out call the synthesizer needs.
package llm

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/anjanaaa29/rag-reader/internal/embedding"
)

const (
	// DefaultModel is the Groq-hosted model used when none is configured.
	DefaultModel = "llama3-70b-8192"

	// DefaultTemperature matches the hosted default used for answers.
	DefaultTemperature = 0.7

	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// OpenAICompleter sends one user message per prompt and returns the first
// choice. HTTP 429 responses are retried with exponential backoff.
type OpenAICompleter struct {
	client      *embedding.Client
	model       string
	temperature float64
	maxTokens   int64
	newBackOff  func() backoff.BackOff
}

// Option configures an OpenAICompleter.
type Option func(*OpenAICompleter)

func WithModel(model string) Option {
	return func(c *OpenAICompleter) {
		if model != "" {
			c.model = model
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *OpenAICompleter) { c.temperature = t }
}

// WithMaxTokens caps the completion length; 0 leaves it to the provider.
func WithMaxTokens(n int64) Option {
	return func(c *OpenAICompleter) { c.maxTokens = n }
}

// WithBackOff replaces the retry policy for rate-limited requests.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *OpenAICompleter) { c.newBackOff = newBackOff }
}

// NewOpenAICompleter creates a completer on an existing client.
func NewOpenAICompleter(client *embedding.Client, opts ...Option) *OpenAICompleter {
	c := &OpenAICompleter{
		client:      client,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		newBackOff:  func() backoff.BackOff { return embedding.NewBackOff() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the chat model name.
func (c *OpenAICompleter) Model() string {
	return c.model
}

// Complete returns the model's answer to prompt.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}

	var answer string
	operation := func() error {
		resp, err := c.client.Client().Chat.Completions.New(ctx, params)
		if err != nil {
			if embedding.IsRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("chat completion returned no choices"))
		}
		answer = resp.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return answer, nil
}
