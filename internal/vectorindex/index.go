// Package vectorindex stores L2-normalized chunk embeddings and answers exact
// cosine-similarity queries over them.
package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

const (
	// DefaultName is the index name recorded when none is given.
	DefaultName = "documents"

	// DefaultBatchSize is the number of chunk texts sent to the embedder per call.
	DefaultBatchSize = 64

	// DefaultConcurrency bounds the number of embedding batches in flight.
	DefaultConcurrency = 4
)

// Embedder produces one vector per text, in input order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Entry is one indexed vector together with the chunk it embeds.
type Entry struct {
	ID     int
	Vector []float32
	Chunk  domain.Chunk
}

// Info is the metadata record stored next to a persisted index.
type Info struct {
	EmbeddingModelName string    `yaml:"embedding_model_name" json:"embedding_model_name"`
	DocumentCount      int       `yaml:"document_count" json:"document_count"`
	ChunkCount         int       `yaml:"chunk_count" json:"chunk_count"`
	IndexName          string    `yaml:"index_name" json:"index_name"`
	Dimension          int       `yaml:"dimension" json:"dimension"`
	CreatedAt          time.Time `yaml:"created_at" json:"created_at"`
}

// Index is an in-memory exact nearest-neighbour index. Mutations take the
// write lock; queries share the read lock and may run concurrently.
type Index struct {
	mu        sync.RWMutex
	name      string
	model     string
	dim       int
	entries   []Entry
	createdAt time.Time

	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithName sets the index name.
func WithName(name string) Option {
	return func(idx *Index) {
		if name != "" {
			idx.name = name
		}
	}
}

// WithBatchSize sets the number of texts per embedding call.
func WithBatchSize(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithConcurrency bounds parallel embedding calls during build.
func WithConcurrency(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

func newIndex(model string, opts ...Option) *Index {
	idx := &Index{
		name:        DefaultName,
		model:       model,
		createdAt:   time.Now().UTC(),
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build embeds chunks and returns a new index holding them in input order.
// It fails with domain.ErrEmptyCorpus when chunks is empty.
func Build(ctx context.Context, chunks []domain.Chunk, embedder Embedder, opts ...Option) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	idx := newIndex(embedder.ModelName(), opts...)
	if err := idx.Add(ctx, chunks, embedder); err != nil {
		return nil, err
	}
	idx.logger.Info("Built index", "name", idx.name, "chunks", len(chunks), "dimension", idx.dim, "model", idx.model)
	return idx, nil
}

// Add appends chunks to the index. Embeddings are computed before the write
// lock is taken; either every chunk is appended or none is. Chunks whose
// embedding is the zero vector have no direction and are skipped.
func (idx *Index) Add(ctx context.Context, chunks []domain.Chunk, embedder Embedder) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := idx.embedAll(ctx, chunks, embedder)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.model != "" && embedder.ModelName() != idx.model {
		return fmt.Errorf("%w: index built with %q, got embeddings from %q",
			domain.ErrDimensionMismatch, idx.model, embedder.ModelName())
	}

	dim := idx.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		return fmt.Errorf("%w: embedder returned empty vectors", domain.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}

	normalized := make([][]float32, 0, len(vectors))
	kept := make([]domain.Chunk, 0, len(chunks))
	for i, v := range vectors {
		n := normalize(v)
		if isZero(n) {
			idx.logger.Warn("Skipping chunk with zero embedding",
				"source_id", chunks[i].Metadata.String(domain.MetaSourceID),
				"offset", chunks[i].Offset,
			)
			continue
		}
		normalized = append(normalized, n)
		kept = append(kept, chunks[i])
	}
	if len(kept) == 0 && len(idx.entries) == 0 {
		return fmt.Errorf("%w: every chunk embedded to the zero vector", domain.ErrEmptyCorpus)
	}

	idx.dim = dim
	for i, v := range normalized {
		idx.entries = append(idx.entries, Entry{
			ID:     len(idx.entries),
			Vector: v,
			Chunk:  kept[i],
		})
	}
	return nil
}

// embedAll embeds chunk texts in batches, running up to idx.concurrency
// batches at once. Results keep the input order.
func (idx *Index) embedAll(ctx context.Context, chunks []domain.Chunk, embedder Embedder) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for start := 0; start < len(chunks); start += idx.batchSize {
		end := min(start+idx.batchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Text
			}
			out, err := embedder.GenerateEmbeddings(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end, len(out), len(texts))
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Query returns up to k chunks ranked by cosine similarity to vec.
func (idx *Index) Query(vec []float32, k int) ([]domain.Hit, error) {
	return idx.Search(context.Background(), vec, k, nil)
}

// Search ranks every chunk matching filter by cosine similarity to vec and
// returns the top k. Equal scores keep insertion order. If k exceeds the
// number of candidates, all of them are returned.
func (idx *Index) Search(ctx context.Context, vec []float32, k int, filter domain.Filter) ([]domain.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrValidation, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(vec) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(vec), idx.dim)
	}

	q := normalize(vec)
	hits := make([]domain.Hit, 0, len(idx.entries))
	for _, e := range idx.entries {
		if len(filter) > 0 && !e.Chunk.Metadata.Matches(filter) {
			continue
		}
		hits = append(hits, domain.Hit{
			ID:     e.ID,
			Chunk:  e.Chunk,
			Score:  dot(q, e.Vector),
			Vector: e.Vector,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Chunk.Metadata = hits[i].Chunk.Metadata.Clone()
	}
	return hits, nil
}

// Entries returns a snapshot of all indexed vectors in insertion order.
func (idx *Index) Entries() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dimension returns the vector dimensionality, or 0 for an empty index.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Info returns the index metadata record.
func (idx *Index) Info() Info {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.infoLocked()
}

// Health reports an error when the index holds no vectors.
func (idx *Index) Health(ctx context.Context) error {
	if idx.Len() == 0 {
		return domain.ErrEmptyCorpus
	}
	return nil
}

func (idx *Index) infoLocked() Info {
	sources := make(map[string]struct{})
	for _, e := range idx.entries {
		sources[e.Chunk.Metadata.String(domain.MetaSourceID)] = struct{}{}
	}
	return Info{
		EmbeddingModelName: idx.model,
		DocumentCount:      len(sources),
		ChunkCount:         len(idx.entries),
		IndexName:          idx.name,
		Dimension:          idx.dim,
		CreatedAt:          idx.createdAt,
	}
}

// normalize returns a unit-length copy of v. The zero vector stays zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	n := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Cosine returns the cosine similarity of two L2-normalized vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return dot(a, b)
}
