// Package indexer turns document sources into a vector index.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anjanaaa29/rag-reader/internal/chunker"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/metadata"
	"github.com/anjanaaa29/rag-reader/internal/metrics"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	Source         string        `json:"source"`
	Revision       string        `json:"revision,omitempty"`
	TotalDocs      int           `json:"total_docs"`
	SuccessfulDocs int           `json:"successful_docs"`
	TotalChunks    int           `json:"total_chunks"`
	FailedDocs     []FailedDoc   `json:"failed_docs,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// FailedDoc represents a document that failed to index.
type FailedDoc struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Enricher fills missing metadata for a document.
type Enricher interface {
	Enrich(ctx context.Context, path, content string, meta domain.Metadata) (domain.Metadata, error)
}

// Pipeline orchestrates loading, enrichment, chunking and index building.
type Pipeline struct {
	chunker   *chunker.Chunker
	embedder  vectorindex.Embedder
	enricher  Enricher
	metrics   *metrics.Recorder
	indexOpts []vectorindex.Option
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEnricher enables metadata enrichment.
func WithEnricher(e Enricher) Option {
	return func(p *Pipeline) { p.enricher = e }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithIndexOptions passes options to vectorindex.Build.
func WithIndexOptions(opts ...vectorindex.Option) Option {
	return func(p *Pipeline) { p.indexOpts = append(p.indexOpts, opts...) }
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(c *chunker.Chunker, embedder vectorindex.Embedder, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		chunker:  c,
		embedder: embedder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loads every document of src and builds a new index over all chunks in
// source order. A document that fails is recorded in the result and skipped.
func (p *Pipeline) Run(ctx context.Context, src Source) (*vectorindex.Index, *IndexResult, error) {
	chunks, result, err := p.collect(ctx, src)
	if err != nil {
		return nil, result, err
	}

	idx, err := vectorindex.Build(ctx, chunks, p.embedder, p.indexOpts...)
	if err != nil {
		return nil, result, fmt.Errorf("build index: %w", err)
	}
	p.finish(result, idx)
	return idx, result, nil
}

// Append adds the documents of src to an existing index.
func (p *Pipeline) Append(ctx context.Context, idx *vectorindex.Index, src Source) (*IndexResult, error) {
	chunks, result, err := p.collect(ctx, src)
	if err != nil {
		return result, err
	}

	if err := idx.Add(ctx, chunks, p.embedder); err != nil {
		return result, fmt.Errorf("append to index: %w", err)
	}
	p.finish(result, idx)
	return result, nil
}

func (p *Pipeline) collect(ctx context.Context, src Source) ([]domain.Chunk, *IndexResult, error) {
	start := time.Now()
	result := &IndexResult{Source: src.Name()}

	if r, ok := src.(Revisioner); ok {
		rev, err := r.Revision(ctx)
		if err != nil {
			return nil, result, fmt.Errorf("get revision: %w", err)
		}
		result.Revision = rev
	}
	p.logger.Info("Starting indexing", "source", result.Source, "revision", result.Revision)

	refs, err := src.List(ctx)
	if err != nil {
		return nil, result, fmt.Errorf("list documents: %w", err)
	}
	result.TotalDocs = len(refs)
	p.logger.Info("Found documents", "count", len(refs))

	var all []domain.Chunk
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, result, err
		}

		chunks, err := p.processDocument(ctx, src, ref)
		if err != nil {
			p.logger.Warn("Failed to process document", "path", ref, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Path:   ref,
				Reason: err.Error(),
			})
			p.metrics.ObserveIngestion(metrics.OutcomeFailed)
			continue
		}
		p.metrics.ObserveIngestion(metrics.OutcomeSuccess)
		result.SuccessfulDocs++
		result.TotalChunks += len(chunks)
		all = append(all, chunks...)
	}
	result.Duration = time.Since(start)

	if len(all) == 0 {
		return nil, result, fmt.Errorf("%w: no chunks produced from %d documents", domain.ErrEmptyCorpus, result.TotalDocs)
	}
	return all, result, nil
}

// processDocument loads, enriches, normalizes and chunks one reference.
func (p *Pipeline) processDocument(ctx context.Context, src Source, ref string) ([]domain.Chunk, error) {
	docs, err := src.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		meta := doc.Metadata
		if p.enricher != nil {
			enriched, err := p.enricher.Enrich(ctx, ref, doc.Text, meta)
			if err != nil {
				p.logger.Warn("Metadata enrichment failed, using extracted metadata", "path", ref, "error", err)
			} else {
				meta = enriched
			}
		}
		meta = metadata.Normalize(meta)
		chunks = append(chunks, p.chunker.Split(doc.Text, meta)...)
	}

	p.logger.Debug("Chunked document", "path", ref, "documents", len(docs), "chunks", len(chunks))
	return chunks, nil
}

func (p *Pipeline) finish(result *IndexResult, idx *vectorindex.Index) {
	p.metrics.SetIndexedChunks(idx.Len())
	p.logger.Info("Indexing complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"index_size", idx.Len(),
		"duration", result.Duration,
	)
}
