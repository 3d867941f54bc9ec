package storage

import (
	"errors"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

var (
	// ErrQdrantUnreachable is returned when the startup health check keeps failing.
	ErrQdrantUnreachable = errors.New("qdrant unreachable")

	// ErrCollectionNotFound is returned when the mirror collection has not been created yet.
	ErrCollectionNotFound = errors.New("qdrant collection not found")
)

// DefaultCollectionName is the Qdrant collection used when none is configured.
const DefaultCollectionName = "documents"

// VectorName is the named vector holding chunk embeddings.
const VectorName = "content"

// upsertBatchSize is the number of points sent per upsert call.
const upsertBatchSize = 100

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	PointsCount uint64
	Dimension   uint64
}

// payloadMetadata renders metadata values as strings so that Qdrant keyword
// matches agree with domain.Metadata.Matches.
func payloadMetadata(meta domain.Metadata) map[string]any {
	out := make(map[string]any, len(meta))
	for k := range meta {
		out[k] = meta.String(k)
	}
	return out
}
