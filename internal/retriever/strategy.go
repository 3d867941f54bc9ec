package retriever

import (
	"fmt"
	"strings"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

// Strategy selects how chunks are picked from the index.
type Strategy string

const (
	// StrategySimilarity returns the top-k chunks by cosine similarity.
	StrategySimilarity Strategy = "similarity"

	// StrategyMMR re-ranks an oversampled pool by maximal marginal relevance.
	StrategyMMR Strategy = "mmr"

	// StrategyThreshold returns chunks scoring at least a threshold, capped at k.
	StrategyThreshold Strategy = "similarity_score_threshold"
)

// ValidStrategies lists every supported strategy.
var ValidStrategies = []Strategy{StrategySimilarity, StrategyMMR, StrategyThreshold}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	for _, v := range ValidStrategies {
		if Strategy(s) == v {
			return v, nil
		}
	}
	names := make([]string, len(ValidStrategies))
	for i, v := range ValidStrategies {
		names[i] = string(v)
	}
	return "", fmt.Errorf("%w: %q (valid: %s)", domain.ErrUnsupportedStrategy, s, strings.Join(names, ", "))
}
