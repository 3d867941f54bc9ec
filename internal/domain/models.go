// Package domain holds the data model shared by the ingestion, indexing,
// retrieval and synthesis packages.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceType tags the kind of document a chunk came from. It drives citation
// formatting.
type SourceType string

const (
	SourceOfficialGuideline   SourceType = "official_guideline"
	SourceResearchArticle     SourceType = "research_article"
	SourceEducationalMaterial SourceType = "educational_material"
	SourceWebPage             SourceType = "web_page"
	SourceGeneric             SourceType = "generic"
)

// ParseSourceType maps a free-form tag onto the closed SourceType set.
// Unknown or empty tags become SourceGeneric.
func ParseSourceType(s string) SourceType {
	switch SourceType(strings.ToLower(strings.TrimSpace(s))) {
	case SourceOfficialGuideline:
		return SourceOfficialGuideline
	case SourceResearchArticle:
		return SourceResearchArticle
	case SourceEducationalMaterial:
		return SourceEducationalMaterial
	case SourceWebPage:
		return SourceWebPage
	default:
		return SourceGeneric
	}
}

// Well-known metadata keys.
const (
	MetaSourceID   = "source_id"
	MetaSourceType = "source_type"
	MetaSection    = "section"
)

// Metadata is the provenance mapping carried by every chunk. Values are
// strings or numbers.
type Metadata map[string]any

// String renders the value under key as a string. Missing keys yield "".
// Integral floats render without a fractional part.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// Float reads a numeric value under key. Numeric strings are parsed.
func (m Metadata) Float(key string) (float64, bool) {
	switch t := m[key].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// SourceType returns the parsed source_type tag.
func (m Metadata) SourceType() SourceType {
	return ParseSourceType(m.String(MetaSourceType))
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Matches reports whether every key/value pair in f is present in m.
// Values are compared by their string rendering so 2021 matches "2021".
func (m Metadata) Matches(f Filter) bool {
	for k, want := range f {
		if _, ok := m[k]; !ok {
			return false
		}
		expected := Metadata{k: want}.String(k)
		if m.String(k) != expected {
			return false
		}
	}
	return true
}

// Filter restricts retrieval candidates to chunks whose metadata matches all
// given key/value pairs.
type Filter map[string]any

// Chunk is the unit of retrievable text.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Offset   int      `json:"offset"` // byte position within the parent document
}

// Hit is one nearest-neighbour result. Vector is the stored, L2-normalized
// embedding; MMR needs it to compare candidates with each other.
type Hit struct {
	ID     int
	Chunk  Chunk
	Score  float64 // cosine similarity in [-1, 1]
	Vector []float32
}
