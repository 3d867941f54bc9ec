// Package citation renders chunk provenance metadata as short bracketed
// citations. Formatting never fails: missing fields fall back to generic
// labels.
package citation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

const (
	// DefaultTitleWords is the word count after which titles are truncated.
	DefaultTitleWords = 5

	// DefaultURLLength is the character count after which URLs are truncated.
	DefaultURLLength = 30
)

var (
	yearRe  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	spaceRe = regexp.MustCompile(`\s+`)

	// yearFields are scanned in order for the first plausible year.
	yearFields = []string{"year", "publication_date", "date", "publish_date"}
)

// Formatter formats citations. The zero value uses the defaults.
type Formatter struct {
	TitleWords int
	URLLength  int
}

// New returns a Formatter with default limits.
func New() Formatter {
	return Formatter{TitleWords: DefaultTitleWords, URLLength: DefaultURLLength}
}

// Format returns the citation for one chunk's metadata. The result is never
// empty, including for nil or empty metadata.
func (f Formatter) Format(meta domain.Metadata) string {
	var parts []string
	switch meta.SourceType() {
	case domain.SourceOfficialGuideline:
		parts = f.guideline(meta)
	case domain.SourceResearchArticle:
		parts = f.research(meta)
	case domain.SourceEducationalMaterial:
		parts = f.educational(meta)
	case domain.SourceWebPage:
		parts = f.web(meta)
	default:
		parts = f.generic(meta)
	}
	return "[" + collapse(strings.Join(parts, " ")) + "]"
}

// Footnotes renders a numbered reference list. Empty input yields "".
func (f Formatter) Footnotes(sources []domain.Metadata) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n**References:**\n")
	for i, meta := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f.Format(meta))
	}
	return b.String()
}

func (f Formatter) guideline(meta domain.Metadata) []string {
	parts := []string{first(meta, "Official Source", "organization", "publisher")}
	if title := meta.String("title"); title != "" {
		parts = append(parts, f.ShortTitle(title))
	}
	if rn := meta.String("report_number"); rn != "" {
		parts = append(parts, rn)
	}
	if v := meta.String("version"); v != "" {
		parts = append(parts, "v"+v)
	}
	return appendNonEmpty(parts, Year(meta))
}

func (f Formatter) research(meta domain.Metadata) []string {
	lead := formatAuthors(first(meta, "", "authors", "author"))
	if title := meta.String("title"); title != "" {
		lead += " '" + f.ShortTitle(title) + "'"
	}
	if journal := meta.String("journal"); journal != "" {
		lead += ", " + journal
	}
	parts := appendNonEmpty([]string{lead}, Year(meta))
	if doi := meta.String("doi"); doi != "" {
		parts = append(parts, "DOI:"+doi)
	} else if url := meta.String("url"); url != "" {
		parts = append(parts, "URL:"+f.ShortURL(url))
	}
	return parts
}

func (f Formatter) educational(meta domain.Metadata) []string {
	parts := []string{first(meta, "Educational Material", "publisher", "organization")}
	if title := meta.String("title"); title != "" {
		parts = append(parts, f.ShortTitle(title))
	}
	return appendNonEmpty(parts, Year(meta))
}

func (f Formatter) web(meta domain.Metadata) []string {
	parts := []string{first(meta, "Website", "site_name")}
	if title := first(meta, "", "page_title", "title"); title != "" {
		parts = append(parts, "'"+f.ShortTitle(title)+"'")
	}
	parts = appendNonEmpty(parts, Year(meta))
	if url := meta.String("url"); url != "" {
		parts = append(parts, "URL:"+f.ShortURL(url))
	}
	if accessed := meta.String("access_date"); accessed != "" {
		parts = append(parts, "(accessed "+accessed+")")
	}
	return parts
}

func (f Formatter) generic(meta domain.Metadata) []string {
	parts := []string{first(meta, "Source", "source")}
	if title := meta.String("title"); title != "" {
		parts = append(parts, f.ShortTitle(title))
	}
	return appendNonEmpty(parts, Year(meta))
}

// ShortTitle keeps the first TitleWords words, adding "..." when cut.
func (f Formatter) ShortTitle(title string) string {
	limit := f.TitleWords
	if limit <= 0 {
		limit = DefaultTitleWords
	}
	words := strings.Fields(title)
	if len(words) > limit {
		return strings.Join(words[:limit], " ") + "..."
	}
	return strings.Join(words, " ")
}

// ShortURL keeps the first URLLength characters, adding "..." when cut.
func (f Formatter) ShortURL(url string) string {
	limit := f.URLLength
	if limit <= 0 {
		limit = DefaultURLLength
	}
	if utf8.RuneCountInString(url) <= limit {
		return url
	}
	return string([]rune(url)[:limit]) + "..."
}

// Year returns the first four-digit year between 1900 and 2099 found in the
// date-bearing fields, or "".
func Year(meta domain.Metadata) string {
	for _, field := range yearFields {
		if m := yearRe.FindString(meta.String(field)); m != "" {
			return m
		}
	}
	return ""
}

// formatAuthors abbreviates author lists: one or two names are kept, more
// become "first et al.". Names written "Surname, I" keep their initials.
func formatAuthors(raw string) string {
	authors := splitAuthors(raw)
	switch {
	case len(authors) == 0:
		return "Anonymous"
	case len(authors) > 2:
		return authors[0] + " et al."
	default:
		return strings.Join(authors, " & ")
	}
}

func splitAuthors(raw string) []string {
	raw = strings.ReplaceAll(raw, ";", ",")
	raw = strings.ReplaceAll(raw, " and ", ",")

	var authors []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if isInitials(tok) && len(authors) > 0 && !strings.Contains(authors[len(authors)-1], ",") {
			authors[len(authors)-1] += ", " + tok
			continue
		}
		authors = append(authors, tok)
	}
	return authors
}

// isInitials reports whether tok looks like "J", "J.", "J.R." or "JR".
func isInitials(tok string) bool {
	letters := 0
	for _, r := range tok {
		switch {
		case r == '.' || r == '-' || r == ' ':
		case unicode.IsUpper(r):
			letters++
		default:
			return false
		}
	}
	return letters > 0 && letters <= 3
}

// first returns the first non-empty field value, or fallback.
func first(meta domain.Metadata, fallback string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(meta.String(k)); v != "" {
			return v
		}
	}
	return fallback
}

func appendNonEmpty(parts []string, s string) []string {
	if s == "" {
		return parts
	}
	return append(parts, s)
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
