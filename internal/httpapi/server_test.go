package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaaa29/rag-reader/internal/assistant"
	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/metrics"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
)

type fakeAssistant struct {
	askReq    assistant.AskRequest
	searchReq retriever.Request
	cleared   string
	err       error
}

func (f *fakeAssistant) Ask(ctx context.Context, req assistant.AskRequest) (*assistant.AskResponse, error) {
	f.askReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &assistant.AskResponse{
		Answer:         "42",
		Citations:      []string{"[Source]"},
		Excerpts:       []string{"forty two..."},
		ConversationID: "conv-1",
		History:        []conversation.Turn{{Query: req.Query, Answer: "42"}},
	}, nil
}

func (f *fakeAssistant) Search(ctx context.Context, req retriever.Request) (*retriever.Result, error) {
	f.searchReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &retriever.Result{
		Strategy: retriever.StrategySimilarity,
		Chunks: []retriever.ScoredChunk{{
			Chunk: domain.Chunk{Text: "chunk", Metadata: domain.Metadata{"source_id": "a.txt"}},
			Score: 0.9,
		}},
	}, nil
}

func (f *fakeAssistant) History(ctx context.Context, id string) ([]conversation.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []conversation.Turn{{Query: "q", Answer: "a", Timestamp: time.Unix(0, 0).UTC()}}, nil
}

func (f *fakeAssistant) ClearConversation(ctx context.Context, id string) error {
	f.cleared = id
	return f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAsk(t *testing.T) {
	fa := &fakeAssistant{}
	router := NewRouter(Config{Assistant: fa})

	rec := do(t, router, http.MethodPost, "/v1/ask",
		`{"query":"meaning of life?","conversation_id":"conv-1","filter":{"year":2021}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp assistant.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Answer)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Len(t, resp.History, 1)

	assert.Equal(t, "meaning of life?", fa.askReq.Query)
	assert.Equal(t, "2021", domain.Metadata(fa.askReq.Filter).String("year"))
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", fmt.Errorf("%w: query must not be empty", domain.ErrValidation), http.StatusBadRequest, "query must not be empty"},
		{"strategy", fmt.Errorf("%w: \"random\"", domain.ErrUnsupportedStrategy), http.StatusBadRequest, "random"},
		{"timeout", fmt.Errorf("synthesize: %w", domain.ErrTimeout), http.StatusGatewayTimeout, "too long"},
		{"generation", fmt.Errorf("%w: 503 from upstream", domain.ErrGeneration), http.StatusBadGateway, "could not be generated"},
		{"internal", errors.New("redis: connection pool timeout"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(Config{Assistant: &fakeAssistant{err: tt.err}})
			rec := do(t, router, http.MethodPost, "/v1/ask", `{"query":"q"}`)
			assert.Equal(t, tt.code, rec.Code)
			msg := decodeError(t, rec)
			assert.Contains(t, msg, tt.message)
			assert.NotContains(t, msg, "redis")
			assert.NotContains(t, msg, "upstream")
		})
	}
}

func TestAskMalformedBody(t *testing.T) {
	router := NewRouter(Config{Assistant: &fakeAssistant{}})
	rec := do(t, router, http.MethodPost, "/v1/ask", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeError(t, rec))
}

func TestAskWrongMethod(t *testing.T) {
	router := NewRouter(Config{Assistant: &fakeAssistant{}})
	rec := do(t, router, http.MethodGet, "/v1/ask", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearch(t *testing.T) {
	fa := &fakeAssistant{}
	router := NewRouter(Config{Assistant: fa})

	rec := do(t, router, http.MethodPost, "/v1/search", `{"query":"q","strategy":"mmr","k":3,"fetch_k":9}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a.txt", resp.Results[0].Metadata.String("source_id"))
	assert.Equal(t, retriever.StrategyMMR, fa.searchReq.Strategy)
	assert.Equal(t, 9, fa.searchReq.FetchK)
}

func TestConversationRoutes(t *testing.T) {
	fa := &fakeAssistant{}
	router := NewRouter(Config{Assistant: fa})

	rec := do(t, router, http.MethodGet, "/v1/conversations/conv-7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Equal(t, "conv-7", hist.ConversationID)
	assert.Len(t, hist.History, 1)

	rec = do(t, router, http.MethodDelete, "/v1/conversations/conv-7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "conv-7", fa.cleared)
}

func TestMetricsHealthAndMCPMounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewWithRegistry(reg)
	recorder.ObserveAsk("mmr", metrics.OutcomeSuccess, time.Second)

	health := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) })

	router := NewRouter(Config{
		Assistant: &fakeAssistant{},
		Health:    health,
		Metrics:   reg,
		MCP:       mcpHandler,
	})

	rec := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rag_ask_requests_total")

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/mcp", "{}").Code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusCode(domain.ErrValidation))
	assert.Equal(t, http.StatusGatewayTimeout, statusCode(domain.ErrTimeout))
	assert.Equal(t, http.StatusBadGateway, statusCode(domain.ErrGeneration))
	assert.Equal(t, http.StatusInternalServerError, statusCode(errors.New("boom")))
}
