package retriever

import (
	"regexp"
	"strings"
)

// DefaultScoreField is the metadata key holding a precomputed relevance score.
const DefaultScoreField = "score"

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// RelevanceFilter drops chunks whose relevance falls below MinScore.
//
// A chunk carrying a numeric ScoreField in its metadata is judged by that
// value. Any other chunk is judged by LexicalOverlap with the query. The two
// scales are not comparable; one MinScore applies to both.
type RelevanceFilter struct {
	MinScore   float64
	ScoreField string
}

// Apply returns the chunks that pass the gate, preserving order.
func (f RelevanceFilter) Apply(query string, chunks []ScoredChunk) []ScoredChunk {
	field := f.ScoreField
	if field == "" {
		field = DefaultScoreField
	}
	terms := words(query)

	kept := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		score, ok := c.Chunk.Metadata.Float(field)
		if !ok {
			score = overlap(terms, c.Chunk.Text)
		}
		if score >= f.MinScore {
			kept = append(kept, c)
		}
	}
	return kept
}

// LexicalOverlap returns the fraction of distinct query words that occur as
// whole words in text, ignoring case. A query without words scores 0.
func LexicalOverlap(query, text string) float64 {
	return overlap(words(query), text)
}

func overlap(terms map[string]struct{}, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	present := words(text)
	matched := 0
	for t := range terms {
		if _, ok := present[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func words(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
