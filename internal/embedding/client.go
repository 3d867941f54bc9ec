package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by embedding, completion and
// metadata enrichment.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. baseURL may point at any
// OpenAI-compatible endpoint; empty means the default API.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key not set (RAG_EMBEDDING_API_KEY or OPENAI_API_KEY)")
	}

	// Rate limits are retried by callers with their own backoff policy.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., completion).
func (c *Client) Client() *openai.Client {
	return c.client
}
