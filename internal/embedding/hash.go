package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimension is the vector size of HashEmbedder when none is given.
const DefaultHashDimension = 384

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEmbedder is a deterministic, offline embedder. It hashes lower-cased
// word unigrams and bigrams into a fixed number of signed buckets and
// L2-normalizes the result. Identical text always yields an identical vector.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder with dim buckets.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// ModelName identifies the embedder and its dimension.
func (h *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-%d", h.dim)
}

// Dimension returns the vector size.
func (h *HashEmbedder) Dimension() int {
	return h.dim
}

// GenerateEmbeddings embeds each text independently.
func (h *HashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.Embed(text)
	}
	return out, nil
}

// Embed returns the normalized hashed vector for text. Text without any
// word characters yields the zero vector.
func (h *HashEmbedder) Embed(text string) []float32 {
	vec := make([]float64, h.dim)
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		h.add(vec, tok, 1.0)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dim)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (h *HashEmbedder) add(vec []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	bucket := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}
