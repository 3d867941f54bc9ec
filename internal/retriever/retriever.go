// Package retriever selects the chunks used to ground an answer.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

const (
	// DefaultK is the number of chunks returned when a request leaves K unset.
	DefaultK = 5

	// DefaultFetchK is the minimum MMR candidate pool size.
	DefaultFetchK = 20

	// DefaultLambda weighs relevance against diversity in MMR.
	DefaultLambda = 0.5
)

// Searcher ranks stored chunks by similarity to a query vector.
// Both the local vector index and the Qdrant mirror implement it.
type Searcher interface {
	Search(ctx context.Context, vec []float32, k int, filter domain.Filter) ([]domain.Hit, error)
}

// Embedder turns the query text into a vector.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ScoredChunk is a retrieved chunk with its relevance score in [0, 1].
type ScoredChunk struct {
	Chunk domain.Chunk
	Score float64
}

// Result is the ranked output of one retrieval.
type Result struct {
	Chunks   []ScoredChunk
	Strategy Strategy
}

// Request describes one retrieval.
type Request struct {
	Query          string
	Strategy       Strategy // empty means StrategySimilarity
	K              int      // 0 means DefaultK
	FetchK         int      // MMR pool size; 0 means max(DefaultFetchK, K)
	ScoreThreshold *float64 // required for StrategyThreshold
	Filter         domain.Filter
}

// Retriever runs retrieval strategies against a Searcher.
type Retriever struct {
	searcher  Searcher
	embedder  Embedder
	lambda    float64
	relevance *RelevanceFilter
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLambda sets the MMR relevance weight.
func WithLambda(lambda float64) Option {
	return func(r *Retriever) { r.lambda = lambda }
}

// WithRelevanceFilter enables the post-retrieval relevance gate.
func WithRelevanceFilter(f RelevanceFilter) Option {
	return func(r *Retriever) { r.relevance = &f }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Retriever.
func New(searcher Searcher, embedder Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		searcher: searcher,
		embedder: embedder,
		lambda:   DefaultLambda,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query and selects chunks with the requested strategy.
// Finding no chunks is not an error; the result is simply empty.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Result, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategySimilarity
	}
	strategy, err := ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}

	k, fetchK, err := validate(strategy, req)
	if err != nil {
		return nil, err
	}

	vectors, err := r.embedder.GenerateEmbeddings(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	query := vectors[0]

	var hits []domain.Hit
	switch strategy {
	case StrategyMMR:
		pool, err := r.searcher.Search(ctx, query, fetchK, req.Filter)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		hits, err = selectMMR(pool, k, r.lambda)
		if err != nil {
			return nil, fmt.Errorf("mmr: %w", err)
		}
	default:
		hits, err = r.searcher.Search(ctx, query, k, req.Filter)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
	}

	chunks := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if req.ScoreThreshold != nil && h.Score < *req.ScoreThreshold {
			continue
		}
		chunks = append(chunks, ScoredChunk{Chunk: h.Chunk, Score: clamp(h.Score)})
	}

	retrieved := len(chunks)
	if r.relevance != nil {
		chunks = r.relevance.Apply(req.Query, chunks)
	}

	r.logger.Debug("Retrieved chunks",
		"strategy", strategy,
		"k", k,
		"retrieved", retrieved,
		"kept", len(chunks),
	)

	return &Result{Chunks: chunks, Strategy: strategy}, nil
}

// validate checks the request against the strategy and resolves defaults.
func validate(strategy Strategy, req Request) (k, fetchK int, err error) {
	if strings.TrimSpace(req.Query) == "" {
		return 0, 0, fmt.Errorf("%w: query must not be empty", domain.ErrValidation)
	}

	k = req.K
	if k == 0 {
		k = DefaultK
	}
	if k < 1 {
		return 0, 0, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrValidation, req.K)
	}

	if strategy == StrategyThreshold && req.ScoreThreshold == nil {
		return 0, 0, fmt.Errorf("%w: score_threshold is required for %s", domain.ErrValidation, StrategyThreshold)
	}
	if t := req.ScoreThreshold; t != nil && (*t < 0 || *t > 1) {
		return 0, 0, fmt.Errorf("%w: score_threshold must be within [0, 1], got %v", domain.ErrValidation, *t)
	}

	fetchK = req.FetchK
	if strategy == StrategyMMR {
		if fetchK == 0 {
			fetchK = max(DefaultFetchK, k)
		}
		if fetchK < k {
			return 0, 0, fmt.Errorf("%w: fetch_k (%d) must be at least k (%d)", domain.ErrValidation, fetchK, k)
		}
	}
	return k, fetchK, nil
}

// clamp maps a cosine similarity onto [0, 1]; opposing vectors score 0.
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
