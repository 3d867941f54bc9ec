package vectorindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

func TestPersistLoad_RoundTrip(t *testing.T) {
	chunks, emb := testCorpus()
	chunks[0].Metadata["year"] = 2021
	chunks[0].Offset = 42

	idx, err := Build(context.Background(), chunks, emb, WithName("kb"))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, idx.Persist(dir))
	assert.FileExists(t, filepath.Join(dir, VectorsFile))
	assert.FileExists(t, filepath.Join(dir, InfoFile))

	loaded, err := Load(dir)
	require.NoError(t, err)

	for _, q := range [][]float32{{0, 1}, {1, 0}, {1, 1}, {-1, 0.5}} {
		want, err := idx.Query(q, 5)
		require.NoError(t, err)
		got, err := loaded.Query(q, 5)
		require.NoError(t, err)

		assert.Equal(t, texts(want), texts(got), "query %v", q)
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.InDelta(t, want[i].Score, got[i].Score, 1e-6)
		}
	}

	info := loaded.Info()
	assert.Equal(t, idx.Info().IndexName, info.IndexName)
	assert.Equal(t, idx.Info().EmbeddingModelName, info.EmbeddingModelName)
	assert.Equal(t, idx.Info().DocumentCount, info.DocumentCount)
	assert.Equal(t, 2, info.Dimension)

	first := loaded.Entries()[0]
	assert.Equal(t, 42, first.Chunk.Offset)
	assert.Equal(t, "2021", first.Chunk.Metadata.String("year"))
	assert.Equal(t, "a.txt", first.Chunk.Metadata.String("source_id"))
}

func TestPersist_Overwrites(t *testing.T) {
	chunks, emb := testCorpus()
	dir := t.TempDir()

	small, err := Build(context.Background(), chunks[:2], emb)
	require.NoError(t, err)
	require.NoError(t, small.Persist(dir))

	full, err := Build(context.Background(), chunks, emb)
	require.NoError(t, err)
	require.NoError(t, full.Persist(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), loaded.Len())
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestLoad_IncompleteDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, InfoFile), []byte("index_name: x\n"), 0o644))
	_, err = Load(dir)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestLoad_QueryDimensionChecked(t *testing.T) {
	chunks, emb := testCorpus()
	idx, err := Build(context.Background(), chunks, emb)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, idx.Persist(dir))
	loaded, err := Load(dir)
	require.NoError(t, err)

	_, err = loaded.Query([]float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
