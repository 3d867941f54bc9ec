// Package storage mirrors a vector index into Qdrant and serves similarity
// search from it.
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	host       string
	port       int
	collection string
	dim        int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(host string, port int, collection string) (*QdrantStorage, error) {
	if collection == "" {
		collection = DefaultCollectionName
	}

	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		host:       host,
		port:       port,
		collection: collection,
	}

	ctx := context.Background()
	err = storage.healthCheckWithRetry(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// newBackOff returns the retry policy for Qdrant calls.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackOff() *backoff.ExponentialBackOff {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second
	return exponentialBackoff
}

func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	operation := func() error {
		return s.Health(ctx)
	}
	return backoff.Retry(operation, backoff.WithContext(newBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Collection returns the collection name.
func (s *QdrantStorage) Collection() string {
	return s.collection
}

// EnsureCollection creates the collection with dim-sized cosine vectors and
// payload indexes if it does not exist yet. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context, dim int) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return s.LoadDimension(ctx)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorName: {
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	s.dim = dim

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes indexes the metadata fields most used in filters.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"metadata." + domain.MetaSourceID,
		"metadata." + domain.MetaSourceType,
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// LoadDimension reads the vector size of an existing collection.
func (s *QdrantStorage) LoadDimension(ctx context.Context) error {
	info, err := s.CollectionInfo(ctx)
	if err != nil {
		return err
	}
	s.dim = int(info.Dimension)
	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantStorage) ClearCollection(ctx context.Context, dim int) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx, dim)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(newBackOff(), ctx))
}

// Mirror replaces the collection contents with every entry of idx. Point IDs
// are the index entry IDs so tie-breaking matches the local index.
func (s *QdrantStorage) Mirror(ctx context.Context, idx *vectorindex.Index) error {
	entries := idx.Entries()
	if len(entries) == 0 {
		return domain.ErrEmptyCorpus
	}

	if err := s.ClearCollection(ctx, idx.Dimension()); err != nil {
		return err
	}

	for i := 0; i < len(entries); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(entries))

		batch := entries[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, e := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDNum(uint64(e.ID)),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					VectorName: qdrant.NewVector(e.Vector...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"text":     e.Chunk.Text,
					"offset":   e.Chunk.Offset,
					"metadata": payloadMetadata(e.Chunk.Metadata),
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// Search returns the k points most similar to vec among those whose metadata
// matches filter. Results are ordered by score, then by point ID.
func (s *QdrantStorage) Search(ctx context.Context, vec []float32, k int, filter domain.Filter) ([]domain.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrValidation, k)
	}
	if s.dim != 0 && len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			domain.ErrDimensionMismatch, len(vec), s.dim)
	}

	var qfilter *qdrant.Filter
	if len(filter) > 0 {
		expected := domain.Metadata(filter)
		must := make([]*qdrant.Condition, 0, len(filter))
		for key := range filter {
			must = append(must, qdrant.NewMatch("metadata."+key, expected.String(key)))
		}
		qfilter = &qdrant.Filter{Must: must}
	}

	vectorName := VectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vec...),
		Using:          &vectorName,
		Filter:         qfilter,
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]domain.Hit, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		meta := domain.Metadata{}
		for key, val := range payload["metadata"].GetStructValue().GetFields() {
			meta[key] = val.GetStringValue()
		}

		hits = append(hits, domain.Hit{
			ID: int(result.Id.GetNum()),
			Chunk: domain.Chunk{
				Text:     payload["text"].GetStringValue(),
				Metadata: meta,
				Offset:   int(payload["offset"].GetIntegerValue()),
			},
			Score:  float64(result.Score),
			Vector: denseVector(result.Vectors.GetVectors().GetVectors()[VectorName]),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	return hits, nil
}

// denseVector reads a dense vector from a query result. Older servers fill
// the deprecated flat data field instead of the dense variant.
func denseVector(v *qdrant.VectorOutput) []float32 {
	if data := v.GetDense().GetData(); len(data) > 0 {
		return data
	}
	return v.GetData()
}

// CollectionInfo retrieves collection statistics including total points count.
func (s *QdrantStorage) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollectionNotFound, err)
	}

	params := collection.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[VectorName]
	return &CollectionInfo{
		PointsCount: collection.GetPointsCount(),
		Dimension:   params.GetSize(),
	}, nil
}
