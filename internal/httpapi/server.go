// Package httpapi serves the question-answering service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anjanaaa29/rag-reader/internal/assistant"
	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
)

const maxBodyBytes = 1 << 20

// Assistant is the service behind the API.
type Assistant interface {
	Ask(ctx context.Context, req assistant.AskRequest) (*assistant.AskResponse, error)
	Search(ctx context.Context, req retriever.Request) (*retriever.Result, error)
	History(ctx context.Context, id string) ([]conversation.Turn, error)
	ClearConversation(ctx context.Context, id string) error
}

// Config holds the router dependencies. Every handler except Assistant is
// optional.
type Config struct {
	Assistant Assistant
	Health    http.Handler
	Metrics   prometheus.Gatherer
	MCP       http.Handler
	Landing   http.Handler
	Logger    *slog.Logger
}

type handler struct {
	assistant Assistant
	logger    *slog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(cfg Config) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{assistant: cfg.Assistant, logger: logger}

	router := mux.NewRouter()
	router.Use(logRequests(logger))

	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/ask", h.ask).Methods(http.MethodPost)
	api.HandleFunc("/search", h.search).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", h.history).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", h.clear).Methods(http.MethodDelete)

	if cfg.Health != nil {
		router.Handle("/health", cfg.Health).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if cfg.MCP != nil {
		router.Handle("/mcp", cfg.MCP)
	}
	if cfg.Landing != nil {
		router.Handle("/", cfg.Landing).Methods(http.MethodGet)
	}

	return router
}

// NewServer wraps router in an http.Server with conservative timeouts. The
// write timeout leaves room for slow completions.
func NewServer(addr string, router http.Handler, requestTimeout time.Duration) *http.Server {
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Minute
	}
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}

type searchRequest struct {
	Query          string        `json:"query"`
	Strategy       string        `json:"strategy,omitempty"`
	K              int           `json:"k,omitempty"`
	FetchK         int           `json:"fetch_k,omitempty"`
	ScoreThreshold *float64      `json:"score_threshold,omitempty"`
	Filter         domain.Filter `json:"filter,omitempty"`
}

type searchResult struct {
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
	Score    float64         `json:"score"`
}

type searchResponse struct {
	Strategy string         `json:"strategy"`
	Results  []searchResult `json:"results"`
}

type historyResponse struct {
	ConversationID string              `json:"conversation_id"`
	History        []conversation.Turn `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	var req assistant.AskRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.assistant.Ask(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.assistant.Search(r.Context(), retriever.Request{
		Query:          req.Query,
		Strategy:       retriever.Strategy(req.Strategy),
		K:              req.K,
		FetchK:         req.FetchK,
		ScoreThreshold: req.ScoreThreshold,
		Filter:         req.Filter,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := searchResponse{
		Strategy: string(result.Strategy),
		Results:  make([]searchResult, 0, len(result.Chunks)),
	}
	for _, sc := range result.Chunks {
		resp.Results = append(resp.Results, searchResult{
			Text:     sc.Chunk.Text,
			Metadata: sc.Chunk.Metadata,
			Score:    sc.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	turns, err := h.assistant.History(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{ConversationID: id, History: turns})
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.ClearConversation(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "status", code, "error", err)
	}
	writeJSON(w, code, errorResponse{Error: assistant.UserMessage(err)})
}

// statusCode maps domain errors onto HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedStrategy):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
