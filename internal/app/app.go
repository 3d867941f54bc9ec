// Package app wires configuration into the components used by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/anjanaaa29/rag-reader/internal/assistant"
	"github.com/anjanaaa29/rag-reader/internal/chunker"
	"github.com/anjanaaa29/rag-reader/internal/config"
	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/embedding"
	ghclient "github.com/anjanaaa29/rag-reader/internal/github"
	"github.com/anjanaaa29/rag-reader/internal/indexer"
	"github.com/anjanaaa29/rag-reader/internal/llm"
	"github.com/anjanaaa29/rag-reader/internal/loader"
	"github.com/anjanaaa29/rag-reader/internal/mcp"
	"github.com/anjanaaa29/rag-reader/internal/metadata"
	"github.com/anjanaaa29/rag-reader/internal/metrics"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
	"github.com/anjanaaa29/rag-reader/internal/storage"
	"github.com/anjanaaa29/rag-reader/internal/synth"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

// App holds the components needed to answer questions.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Index     *vectorindex.Index
	Assistant *assistant.Service
	Metrics   *metrics.Recorder
	Health    map[string]mcp.HealthChecker

	closers []func() error
}

// NewEmbedder builds the configured embedder.
func NewEmbedder(cfg *config.Config) (vectorindex.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "hash":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil
	default:
		client, err := embedding.NewClient(cfg.Embedding.APIKey, cfg.Embedding.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("embedding client: %w", err)
		}
		return embedding.NewOpenAIEmbedder(client, cfg.Embedding.Model, cfg.Embedding.BatchSize), nil
	}
}

// NewPipeline builds the indexing pipeline, with metadata enrichment when
// enabled.
func NewPipeline(cfg *config.Config, embedder vectorindex.Embedder, recorder *metrics.Recorder, logger *slog.Logger) (*indexer.Pipeline, error) {
	c, err := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)
	if err != nil {
		return nil, err
	}

	opts := []indexer.Option{
		indexer.WithMetrics(recorder),
		indexer.WithIndexOptions(
			vectorindex.WithName(cfg.Index.Name),
			vectorindex.WithBatchSize(cfg.Embedding.BatchSize),
			vectorindex.WithConcurrency(cfg.Embedding.Concurrency),
			vectorindex.WithLogger(logger),
		),
	}
	if cfg.Enrichment.Enabled {
		client, err := embedding.NewClient(cfg.Embedding.APIKey, cfg.Embedding.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("enrichment client: %w", err)
		}
		gen := metadata.NewGenerator(client, cfg.Enrichment.Model, cfg.Enrichment.MaxTokens, logger)
		opts = append(opts, indexer.WithEnricher(gen))
	}

	return indexer.NewPipeline(c, embedder, logger, opts...), nil
}

// NewGitHubSource builds a GitHub source from the github section.
func NewGitHubSource(cfg *config.Config, l *loader.Loader) (*ghclient.Source, error) {
	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		return nil, fmt.Errorf("%w: github.owner and github.repo are required", domain.ErrValidation)
	}
	client, err := ghclient.NewClient(cfg.GitHub.Token)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	fetcher := ghclient.NewFetcher(client, cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Path, cfg.GitHub.Branch)
	return ghclient.NewSource(fetcher, l), nil
}

// NewQdrant connects to Qdrant when it is enabled; otherwise it returns nil.
func NewQdrant(cfg *config.Config) (*storage.QdrantStorage, error) {
	if !cfg.Qdrant.Enabled {
		return nil, nil
	}
	return storage.NewQdrantStorage(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
}

// Open loads the persisted index and builds the question-answering stack.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Health:  map[string]mcp.HealthChecker{},
	}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	cfg := a.Config

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return err
	}

	idx, err := vectorindex.Load(cfg.Index.Path, vectorindex.WithLogger(a.Logger))
	if err != nil {
		return fmt.Errorf("load index from %s: %w", cfg.Index.Path, err)
	}
	if model := idx.Info().EmbeddingModelName; model != embedder.ModelName() {
		return fmt.Errorf("%w: index at %s was built with %q but %q is configured",
			domain.ErrDimensionMismatch, cfg.Index.Path, model, embedder.ModelName())
	}
	a.Index = idx
	a.Metrics.SetIndexedChunks(idx.Len())
	a.Health["index"] = idx

	var searcher retriever.Searcher = idx
	qdrant, err := NewQdrant(cfg)
	if err != nil {
		return err
	}
	if qdrant != nil {
		a.closers = append(a.closers, qdrant.Close)
		if err := qdrant.LoadDimension(ctx); err != nil {
			return fmt.Errorf("qdrant collection %s: %w", qdrant.Collection(), err)
		}
		searcher = qdrant
		a.Health["qdrant"] = qdrant
	}

	var store conversation.Store = conversation.NewMemoryStore()
	if cfg.Redis.Enabled {
		rs, err := conversation.NewRedisStore(cfg.Redis.RedisConfig, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rs.Close)
		a.Health["redis"] = rs
		store = rs
	}

	llmClient, err := embedding.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}
	completer := llm.NewOpenAICompleter(llmClient,
		llm.WithModel(cfg.LLM.Model),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(int64(cfg.LLM.MaxTokens)),
	)

	retrieverOpts := []retriever.Option{
		retriever.WithLambda(cfg.Retrieval.Lambda),
		retriever.WithLogger(a.Logger),
	}
	if cfg.Retrieval.RelevanceMinScore > 0 {
		retrieverOpts = append(retrieverOpts, retriever.WithRelevanceFilter(retriever.RelevanceFilter{
			MinScore: cfg.Retrieval.RelevanceMinScore,
		}))
	}

	synthesizer := synth.New(completer,
		synth.WithDomain(cfg.App.Domain),
		synth.WithMaxSources(cfg.Synthesis.MaxSources),
		synth.WithExcerptLength(cfg.Synthesis.ExcerptLength),
		synth.WithHistoryTurns(cfg.Synthesis.HistoryTurns),
		synth.WithMaxAnswerLength(cfg.Synthesis.MaxAnswerLength),
		synth.WithTimeout(cfg.Synthesis.Timeout),
		synth.WithSensitiveKeywords(cfg.Synthesis.SensitiveKeywords),
		synth.WithLogger(a.Logger),
	)

	strategy, threshold := cfg.RetrievalDefaults()
	a.Assistant = assistant.New(
		retriever.New(searcher, embedder, retrieverOpts...),
		synthesizer,
		store,
		assistant.WithRetrievalDefaults(assistant.RetrievalDefaults{
			Strategy:       strategy,
			K:              cfg.Retrieval.TopK,
			FetchK:         cfg.Retrieval.FetchK,
			ScoreThreshold: threshold,
		}),
		assistant.WithDomain(cfg.App.Domain),
		assistant.WithMetrics(a.Metrics),
		assistant.WithLogger(a.Logger),
	)

	a.Logger.Info("Loaded index",
		"path", cfg.Index.Path,
		"chunks", idx.Len(),
		"model", embedder.ModelName(),
		"qdrant", qdrant != nil,
		"redis", cfg.Redis.Enabled,
	)
	return nil
}

// Close releases external connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// IndexExists reports whether a persisted index is present at path.
func IndexExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
