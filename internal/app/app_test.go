package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaaa29/rag-reader/internal/config"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/indexer"
	"github.com/anjanaaa29/rag-reader/internal/loader"
	"github.com/anjanaaa29/rag-reader/internal/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 32
	cfg.LLM.APIKey = "test-key"
	cfg.Index.Path = filepath.Join(t.TempDir(), "index")
	return cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildIndex(t *testing.T, cfg *config.Config) {
	t.Helper()
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("Hand washing prevents infection."), 0o644))

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)
	p, err := NewPipeline(cfg, embedder, metrics.New(), discard())
	require.NoError(t, err)

	idx, _, err := p.Run(context.Background(), indexer.NewDirSource(docs, loader.New(discard())))
	require.NoError(t, err)
	require.NoError(t, idx.Persist(cfg.Index.Path))
}

func TestNewEmbedder(t *testing.T) {
	cfg := testConfig(t)
	e, err := NewEmbedder(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hash-32", e.ModelName())

	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = ""
	_, err = NewEmbedder(cfg)
	assert.Error(t, err)
}

func TestNewPipelineRejectsBadChunking(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunking.Overlap = cfg.Chunking.Size
	e, err := NewEmbedder(cfg)
	require.NoError(t, err)
	_, err = NewPipeline(cfg, e, nil, discard())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewGitHubSourceRequiresRepo(t *testing.T) {
	_, err := NewGitHubSource(testConfig(t), loader.New(discard()))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOpen(t *testing.T) {
	cfg := testConfig(t)
	buildIndex(t, cfg)

	a, err := Open(context.Background(), cfg, discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, 1, a.Index.Len())
	assert.NotNil(t, a.Assistant)
	assert.Contains(t, a.Health, "index")
	assert.NotContains(t, a.Health, "redis")
}

func TestOpenMissingIndex(t *testing.T) {
	_, err := Open(context.Background(), testConfig(t), discard())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestOpenModelMismatch(t *testing.T) {
	cfg := testConfig(t)
	buildIndex(t, cfg)

	cfg.Embedding.Dimension = 64
	_, err := Open(context.Background(), cfg, discard())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
