package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaaa29/rag-reader/internal/embedding"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama3-70b-8192",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "The answer."}}]
}`

const rateLimitBody = `{"error": {"message": "slow down", "type": "rate_limit", "code": "rate_limited"}}`

func newTestCompleter(t *testing.T, handler http.HandlerFunc, opts ...Option) *OpenAICompleter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := embedding.NewClient("test-key", server.URL)
	require.NoError(t, err)

	opts = append([]Option{WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	})}, opts...)
	return NewOpenAICompleter(client, opts...)
}

func TestComplete(t *testing.T) {
	var got map[string]any
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}, WithModel("custom-model"), WithTemperature(0.2), WithMaxTokens(256))

	answer, err := c.Complete(context.Background(), "What is MMR?")
	require.NoError(t, err)
	assert.Equal(t, "The answer.", answer)

	assert.Equal(t, "custom-model", got["model"])
	assert.Equal(t, 0.2, got["temperature"])
	assert.Equal(t, 256.0, got["max_tokens"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "What is MMR?", messages[0].(map[string]any)["content"])
}

func TestComplete_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(rateLimitBody))
			return
		}
		_, _ = w.Write([]byte(completionBody))
	})

	answer, err := c.Complete(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "The answer.", answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_PermanentError(t *testing.T) {
	var calls atomic.Int32
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	})

	_, err := c.Complete(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewOpenAICompleter_Defaults(t *testing.T) {
	client, err := embedding.NewClient("key", "")
	require.NoError(t, err)

	c := NewOpenAICompleter(client, WithModel(""))
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultTemperature, c.temperature)
}
