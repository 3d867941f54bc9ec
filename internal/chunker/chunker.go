// Package chunker splits document text into overlapping, size-bounded chunks
// that inherit the document's provenance metadata.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1024

	// DefaultOverlap is the number of characters shared by adjacent chunks.
	DefaultOverlap = 128

	headerScanLines = 3
)

// DefaultSeparators are tried from coarsest to finest. The empty separator
// is the hard character cut.
var DefaultSeparators = []string{"\n\n", "\n• ", "\n", ". ", " ", ""}

var headerKeywords = []string{"section", "chapter", "heading"}

// Chunker splits text recursively on an ordered separator list.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) { c.size = size }
}

// WithOverlap sets the number of characters shared by adjacent chunks.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

// WithSeparators replaces the separator list. The hard-cut separator "" is
// appended when the list does not end with it.
func WithSeparators(separators []string) Option {
	return func(c *Chunker) {
		if len(separators) == 0 {
			return
		}
		seps := append([]string(nil), separators...)
		if seps[len(seps)-1] != "" {
			seps = append(seps, "")
		}
		c.separators = seps
	}
}

// New creates a Chunker. It fails with domain.ErrValidation unless
// chunk size > overlap >= 0.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:       DefaultChunkSize,
		overlap:    DefaultOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap < 0 || c.size <= c.overlap {
		return nil, fmt.Errorf("%w: chunk size (%d) must be greater than overlap (%d) and overlap must be non-negative",
			domain.ErrValidation, c.size, c.overlap)
	}
	return c, nil
}

// Chunk splits text with the given size and overlap. Every chunk inherits a
// copy of meta.
func Chunk(text string, meta domain.Metadata, size, overlap int) ([]domain.Chunk, error) {
	c, err := New(WithChunkSize(size), WithOverlap(overlap))
	if err != nil {
		return nil, err
	}
	return c.Split(text, meta), nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split segments text into chunks. Empty or whitespace-only text yields an
// empty slice.
func (c *Chunker) Split(text string, meta domain.Metadata) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return []domain.Chunk{}
	}

	pieces := c.splitText(span{text: text}, c.separators)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunkMeta := meta.Clone()
		if header := detectHeader(piece.text); header != "" {
			if _, ok := chunkMeta[domain.MetaSection]; !ok {
				chunkMeta[domain.MetaSection] = header
			}
		}
		chunks = append(chunks, domain.Chunk{
			Text:     piece.text,
			Metadata: chunkMeta,
			Offset:   piece.start,
		})
	}
	return chunks
}

// span is a piece of the source text and its byte offset.
type span struct {
	text  string
	start int
}

// trimmed strips surrounding whitespace and moves start accordingly.
func (s span) trimmed() span {
	left := strings.TrimLeftFunc(s.text, unicode.IsSpace)
	return span{
		text:  strings.TrimRightFunc(left, unicode.IsSpace),
		start: s.start + len(s.text) - len(left),
	}
}

// splitText picks the coarsest separator present in text, splits on it and
// recurses into pieces that are still too long.
func (c *Chunker) splitText(text span, separators []string) []span {
	sep := separators[len(separators)-1]
	var finer []string
	for i, s := range separators {
		if s == "" {
			sep = ""
			break
		}
		if strings.Contains(text.text, s) {
			sep = s
			finer = separators[i+1:]
			break
		}
	}

	var out, small []span
	for _, s := range splitKeepSeparator(text, sep) {
		if runeLen(s.text) <= c.size {
			small = append(small, s)
			continue
		}
		if len(small) > 0 {
			out = append(out, c.merge(small)...)
			small = nil
		}
		if len(finer) == 0 {
			if t := s.trimmed(); t.text != "" {
				out = append(out, t)
			}
			continue
		}
		out = append(out, c.splitText(s, finer)...)
	}
	if len(small) > 0 {
		out = append(out, c.merge(small)...)
	}
	return out
}

// merge greedily packs consecutive splits into chunks of at most c.size
// characters. After each emitted chunk the shortest tail of splits covering
// c.overlap characters is carried into the next one. When no whole split
// fits, the last c.overlap characters of the emitted chunk are carried instead.
func (c *Chunker) merge(splits []span) []span {
	var docs, current []span
	total := 0
	for _, s := range splits {
		n := runeLen(s.text)
		if total+n > c.size && len(current) > 0 {
			prev := join(current)
			if doc := prev.trimmed(); doc.text != "" {
				docs = append(docs, doc)
			}
			current, total = c.overlapTail(current, total, n)
			if len(current) == 0 && c.overlap > 0 && c.overlap+n <= c.size {
				seed := tail(prev, c.overlap)
				current, total = []span{seed}, runeLen(seed.text)
			}
		}
		current = append(current, s)
		total += n
	}
	if len(current) > 0 {
		if doc := join(current).trimmed(); doc.text != "" {
			docs = append(docs, doc)
		}
	}
	return docs
}

// overlapTail drops leading splits until the remainder is the shortest tail
// still covering the overlap, or until the next split fits.
func (c *Chunker) overlapTail(current []span, total, next int) ([]span, int) {
	for len(current) > 0 {
		first := runeLen(current[0].text)
		if total+next <= c.size && total-first < c.overlap {
			break
		}
		current = current[1:]
		total -= first
	}
	return current, total
}

// tail returns the last n runes of s.
func tail(s span, n int) span {
	cut := len(s.text)
	for i := 0; i < n && cut > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s.text[:cut])
		cut -= size
	}
	return span{text: s.text[cut:], start: s.start + cut}
}

// join concatenates contiguous spans.
func join(spans []span) span {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.text)
	}
	return span{text: b.String(), start: spans[0].start}
}

// splitKeepSeparator splits text on sep, re-attaching the separator to the
// start of each following piece so no characters are lost. An empty sep
// splits into single characters.
func splitKeepSeparator(text span, sep string) []span {
	if sep == "" {
		out := make([]span, 0, utf8.RuneCountInString(text.text))
		for i, r := range text.text {
			out = append(out, span{text: string(r), start: text.start + i})
		}
		return out
	}

	parts := strings.Split(text.text, sep)
	out := make([]span, 0, len(parts))
	pos := text.start
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, span{text: p, start: pos})
		}
		pos += len(p)
	}
	return out
}

// detectHeader returns the first of the leading non-empty lines that looks
// like a section header.
func detectHeader(text string) string {
	checked := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isHeader(line) {
			return line
		}
		checked++
		if checked == headerScanLines {
			break
		}
	}
	return ""
}

func isHeader(line string) bool {
	if isUpper(line) || strings.HasSuffix(line, ":") {
		return true
	}
	lower := strings.ToLower(line)
	for _, kw := range headerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isUpper reports whether line has at least one cased letter and no
// lower-case ones.
func isUpper(line string) bool {
	cased := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
