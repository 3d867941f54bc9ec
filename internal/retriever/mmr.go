package retriever

import (
	"fmt"
	"math"

	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/vectorindex"
)

// selectMMR greedily picks k hits from pool, maximizing
//
//	lambda*relevance - (1-lambda)*max similarity to already selected hits.
//
// Ties go to the more relevant hit, then to the earlier one in pool. Every
// candidate must carry a vector of the same length once more than one hit is
// selected; otherwise it fails with domain.ErrDimensionMismatch.
func selectMMR(pool []domain.Hit, k int, lambda float64) ([]domain.Hit, error) {
	n := min(k, len(pool))
	if n > 1 {
		if err := checkVectors(pool); err != nil {
			return nil, err
		}
	}
	selected := make([]domain.Hit, 0, n)
	used := make([]bool, len(pool))

	for len(selected) < n {
		best := -1
		bestScore := math.Inf(-1)
		for i, cand := range pool {
			if used[i] {
				continue
			}
			score := lambda*cand.Score - (1-lambda)*maxSimilarity(cand, selected)
			if best == -1 || score > bestScore || (score == bestScore && cand.Score > pool[best].Score) {
				best = i
				bestScore = score
			}
		}
		used[best] = true
		selected = append(selected, pool[best])
	}
	return selected, nil
}

func checkVectors(pool []domain.Hit) error {
	dim := len(pool[0].Vector)
	for _, h := range pool {
		if len(h.Vector) == 0 || len(h.Vector) != dim {
			return fmt.Errorf("%w: candidate %d has a %d-dimensional vector, expected %d",
				domain.ErrDimensionMismatch, h.ID, len(h.Vector), dim)
		}
	}
	return nil
}

func maxSimilarity(cand domain.Hit, selected []domain.Hit) float64 {
	if len(selected) == 0 {
		return 0
	}
	highest := math.Inf(-1)
	for _, s := range selected {
		if sim := vectorindex.Cosine(cand.Vector, s.Vector); sim > highest {
			highest = sim
		}
	}
	return highest
}
