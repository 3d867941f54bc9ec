// Package metadata cleans document metadata and fills missing citation
// fields.
package metadata

import (
	"regexp"
	"strings"
	"time"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

// aliases maps extractor-specific keys onto the keys citations read.
var aliases = map[string]string{
	"creationdate":  "publication_date",
	"creation_date": "publication_date",
	"creator":       "author",
	"site":          "site_name",
	"published":     "publish_date",
}

// dateFields are rewritten to YYYY-MM-DD when they parse as dates.
var dateFields = []string{"publication_date", "date", "publish_date", "access_date"}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"20060102150405",
	"20060102",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
}

var pdfDateRe = regexp.MustCompile(`^D:(\d{8,14})`)

// Normalize returns a cleaned copy of meta: keys are lower-cased, string
// values trimmed and empty ones dropped, aliases resolved without
// overwriting canonical keys, source_type canonicalized and parseable dates
// rewritten as YYYY-MM-DD.
func Normalize(meta domain.Metadata) domain.Metadata {
	out := make(domain.Metadata, len(meta))
	for k, v := range meta {
		key := strings.ToLower(strings.TrimSpace(k))
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v = s
		}
		out[key] = v
	}

	for alias, canonical := range aliases {
		v, ok := out[alias]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
		delete(out, alias)
	}

	out[domain.MetaSourceType] = string(out.SourceType())

	for _, field := range dateFields {
		if s, ok := out[field].(string); ok {
			out[field] = StandardizeDate(s)
		}
	}
	return out
}

// StandardizeDate rewrites s as YYYY-MM-DD when it matches a known layout,
// including PDF "D:YYYYMMDDHHmmSS" dates. Anything else is returned as is.
func StandardizeDate(s string) string {
	if m := pdfDateRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
