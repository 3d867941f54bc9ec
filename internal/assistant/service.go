// Package assistant answers questions against the indexed corpus while
// keeping per-conversation history.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/metrics"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
	"github.com/anjanaaa29/rag-reader/internal/synth"
)

// RetrievalDefaults is applied to every Ask that does not override it.
type RetrievalDefaults struct {
	Strategy       retriever.Strategy
	K              int
	FetchK         int
	ScoreThreshold *float64
}

// AskRequest is one question. ConversationID may be empty to start a new
// conversation.
type AskRequest struct {
	Query          string        `json:"query"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Filter         domain.Filter `json:"filter,omitempty"`
}

// AskResponse carries the answer and the conversation after this turn.
type AskResponse struct {
	Answer         string              `json:"answer"`
	Citations      []string            `json:"citations"`
	Excerpts       []string            `json:"excerpts"`
	Disclaimer     string              `json:"disclaimer,omitempty"`
	ConversationID string              `json:"conversation_id"`
	History        []conversation.Turn `json:"history"`
}

// Service wires retrieval, synthesis and conversation history together.
type Service struct {
	retriever   *retriever.Retriever
	synthesizer *synth.Synthesizer
	store       conversation.Store
	defaults    RetrievalDefaults
	domain      string
	metrics     *metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithRetrievalDefaults(d RetrievalDefaults) Option {
	return func(s *Service) { s.defaults = d }
}

func WithDomain(d string) Option {
	return func(s *Service) { s.domain = d }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service.
func New(r *retriever.Retriever, syn *synth.Synthesizer, store conversation.Store, opts ...Option) *Service {
	s := &Service{
		retriever:   r,
		synthesizer: syn,
		store:       store,
		defaults:    RetrievalDefaults{Strategy: retriever.StrategyMMR, K: retriever.DefaultK},
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask answers query within a conversation. The turn is committed to history
// only when synthesis succeeds; any failure leaves the history unchanged.
func (s *Service) Ask(ctx context.Context, req AskRequest) (resp *AskResponse, err error) {
	start := s.now()
	strategy := s.defaults.Strategy
	defer func() {
		s.metrics.ObserveAsk(string(strategy), outcome(err), s.now().Sub(start))
	}()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrValidation)
	}

	id := req.ConversationID
	if id == "" {
		if id, err = s.store.Create(ctx); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	}

	history, err := s.store.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation history: %w", err)
	}

	retrieval, err := s.retriever.Retrieve(ctx, retriever.Request{
		Query:          req.Query,
		Strategy:       strategy,
		K:              s.defaults.K,
		FetchK:         s.defaults.FetchK,
		ScoreThreshold: s.defaults.ScoreThreshold,
		Filter:         req.Filter,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveRetrieval(len(retrieval.Chunks))

	answer, err := s.synthesizer.Synthesize(ctx, synth.Request{
		Query:     req.Query,
		Retrieval: retrieval,
		History:   history,
		Domain:    s.domain,
	})
	if err != nil {
		s.logger.Warn("Synthesis failed", "conversation_id", id, "error", err)
		return nil, err
	}

	turn := conversation.Turn{Query: req.Query, Answer: answer.Answer, Timestamp: s.now()}
	if err := s.store.Append(ctx, id, turn); err != nil {
		return nil, fmt.Errorf("failed to save conversation turn: %w", err)
	}

	s.logger.Info("Answered question",
		"conversation_id", id,
		"strategy", retrieval.Strategy,
		"chunks", len(retrieval.Chunks),
		"citations", len(answer.Citations),
	)

	return &AskResponse{
		Answer:         answer.Answer,
		Citations:      answer.Citations,
		Excerpts:       answer.Excerpts,
		Disclaimer:     answer.Disclaimer,
		ConversationID: id,
		History:        append(history, turn),
	}, nil
}

// Search runs retrieval only, without synthesis or history.
func (s *Service) Search(ctx context.Context, req retriever.Request) (*retriever.Result, error) {
	if req.Strategy == "" {
		req.Strategy = s.defaults.Strategy
	}
	if req.K == 0 {
		req.K = s.defaults.K
	}
	if req.FetchK == 0 {
		req.FetchK = s.defaults.FetchK
	}
	if req.ScoreThreshold == nil {
		req.ScoreThreshold = s.defaults.ScoreThreshold
	}
	return s.retriever.Retrieve(ctx, req)
}

// History returns the turns of a conversation.
func (s *Service) History(ctx context.Context, id string) ([]conversation.Turn, error) {
	return s.store.History(ctx, id)
}

// ClearConversation deletes a conversation's history.
func (s *Service) ClearConversation(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: conversation id must not be empty", domain.ErrValidation)
	}
	return s.store.Clear(ctx, id)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedStrategy):
		return metrics.OutcomeValidation
	case errors.Is(err, domain.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, domain.ErrGeneration):
		return metrics.OutcomeGeneration
	default:
		return metrics.OutcomeError
	}
}

// UserMessage turns an Ask or Search error into a message safe to show to
// the caller. Validation messages are passed through; everything else is
// replaced by a fixed sentence.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedStrategy):
		return err.Error()
	case errors.Is(err, domain.ErrTimeout):
		return "The answer took too long to generate. Please try again."
	case errors.Is(err, domain.ErrGeneration):
		return "The answer could not be generated right now. Please try again later."
	case errors.Is(err, domain.ErrIndexNotFound), errors.Is(err, domain.ErrEmptyCorpus):
		return "No documents have been indexed yet."
	default:
		return "An internal error occurred while answering the question."
	}
}
