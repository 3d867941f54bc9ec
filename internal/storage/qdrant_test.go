//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/embedding"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

// setupTestStorage creates a storage instance on a throwaway collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage("localhost", 6334, "test-"+uuid.New().String())
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() {
		_ = storage.client.DeleteCollection(context.Background(), storage.collection)
		storage.Close()
	})
	return storage
}

func buildIndex(t *testing.T) *vectorindex.Index {
	var chunks []domain.Chunk
	for i, text := range []string{
		"cosine similarity ranks vectors",
		"maximal marginal relevance adds diversity",
		"conversation history is stored per session",
		"citations are formatted by source type",
	} {
		chunks = append(chunks, domain.Chunk{
			Text: text,
			Metadata: domain.Metadata{
				"source_id":   fmt.Sprintf("doc-%d.txt", i%2),
				"source_type": "generic",
				"year":        2020 + i,
			},
			Offset: i * 10,
		})
	}
	idx, err := vectorindex.Build(context.Background(), chunks, embedding.NewHashEmbedder(64))
	require.NoError(t, err)
	return idx
}

func TestMirrorSearchMatchesLocalIndex(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	idx := buildIndex(t)

	require.NoError(t, storage.Mirror(ctx, idx))

	info, err := storage.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(idx.Len()), info.PointsCount)
	assert.Equal(t, uint64(64), info.Dimension)

	query := embedding.NewHashEmbedder(64).Embed("how are vectors ranked by similarity")
	local, err := idx.Query(query, 3)
	require.NoError(t, err)
	remote, err := storage.Search(ctx, query, 3, nil)
	require.NoError(t, err)

	require.Len(t, remote, len(local))
	for i := range local {
		assert.Equal(t, local[i].ID, remote[i].ID)
		assert.Equal(t, local[i].Chunk.Text, remote[i].Chunk.Text)
		assert.InDelta(t, local[i].Score, remote[i].Score, 1e-4)
		assert.Len(t, remote[i].Vector, 64)
	}
	assert.Equal(t, "generic", remote[0].Chunk.Metadata.String("source_type"))
	assert.NotEmpty(t, remote[0].Chunk.Metadata.String("year"))
}

func TestSearchWithFilter(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	idx := buildIndex(t)
	require.NoError(t, storage.Mirror(ctx, idx))

	query := embedding.NewHashEmbedder(64).Embed("session history")
	hits, err := storage.Search(ctx, query, 10, domain.Filter{"source_id": "doc-1.txt"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "doc-1.txt", h.Chunk.Metadata.String("source_id"))
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.Mirror(ctx, buildIndex(t)))

	_, err := storage.Search(ctx, []float32{1, 2, 3}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestMMROverMirrorMatchesLocalIndex(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	idx := buildIndex(t)
	require.NoError(t, storage.Mirror(ctx, idx))

	embedder := embedding.NewHashEmbedder(64)
	req := retriever.Request{Query: "vectors ranked by similarity", Strategy: retriever.StrategyMMR, K: 3, FetchK: 4}

	local, err := retriever.New(idx, embedder).Retrieve(ctx, req)
	require.NoError(t, err)
	remote, err := retriever.New(storage, embedder).Retrieve(ctx, req)
	require.NoError(t, err)

	require.Len(t, remote.Chunks, len(local.Chunks))
	for i := range local.Chunks {
		assert.Equal(t, local.Chunks[i].Chunk.Text, remote.Chunks[i].Chunk.Text)
	}
}
