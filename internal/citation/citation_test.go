package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

func TestFormat_Families(t *testing.T) {
	f := New()

	tests := []struct {
		name string
		meta domain.Metadata
		want string
	}{
		{
			name: "guideline",
			meta: domain.Metadata{
				"source_type":   "official_guideline",
				"organization":  "WHO",
				"title":         "Global Guidelines for the Prevention and Treatment of Cardiovascular Diseases",
				"version":       "2.1",
				"report_number": "WH-1234",
				"year":          "2022",
			},
			want: "[WHO Global Guidelines for the Prevention... WH-1234 v2.1 2022]",
		},
		{
			name: "guideline falls back to publisher",
			meta: domain.Metadata{"source_type": "official_guideline", "publisher": "NICE"},
			want: "[NICE]",
		},
		{
			name: "research",
			meta: domain.Metadata{
				"source_type": "research_article",
				"authors":     "Smith, J, Doe, A, Lee, C",
				"title":       "Long Title Exceeding Five Words For Sure",
				"journal":     "J. Med",
				"year":        "2021",
				"doi":         "10.1/x",
			},
			want: "[Smith, J et al. 'Long Title Exceeding Five Words...', J. Med 2021 DOI:10.1/x]",
		},
		{
			name: "research two authors with url",
			meta: domain.Metadata{
				"source_type": "research_article",
				"authors":     "Smith, J, Doe, A",
				"url":         "https://example.org/papers/2021/very-long-path",
			},
			want: "[Smith, J & Doe, A URL:https://example.org/papers/202...]",
		},
		{
			name: "research anonymous",
			meta: domain.Metadata{"source_type": "research_article", "journal": "Lancet", "year": 2019},
			want: "[Anonymous, Lancet 2019]",
		},
		{
			name: "educational",
			meta: domain.Metadata{
				"source_type": "educational_material",
				"publisher":   "Harvard Medical School",
				"title":       "Comprehensive Guide to Cardiovascular Health",
				"year":        "2023",
			},
			want: "[Harvard Medical School Comprehensive Guide to Cardiovascular Health 2023]",
		},
		{
			name: "web",
			meta: domain.Metadata{
				"source_type":  "web_page",
				"site_name":    "Mayo Clinic",
				"page_title":   "Heart Disease: Symptoms and Causes",
				"url":          "https://www.mayoclinic.org/diseases-conditions/heart-disease",
				"publish_date": "2023-05-15",
				"access_date":  "2023-10-20",
			},
			want: "[Mayo Clinic 'Heart Disease: Symptoms and Causes' 2023 URL:https://www.mayoclinic.org/dis... (accessed 2023-10-20)]",
		},
		{
			name: "unknown type",
			meta: domain.Metadata{"source_type": "unknown_type", "title": "Some Unknown Document"},
			want: "[Source Some Unknown Document]",
		},
		{
			name: "empty",
			meta: domain.Metadata{},
			want: "[Source]",
		},
		{
			name: "nil",
			meta: nil,
			want: "[Source]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.meta))
		})
	}
}

func TestFormat_Deterministic(t *testing.T) {
	meta := domain.Metadata{"source_type": "web_page", "site_name": "Docs", "year": 2020}
	assert.Equal(t, New().Format(meta), New().Format(meta))
}

func TestFormat_ZeroValueUsesDefaults(t *testing.T) {
	meta := domain.Metadata{"title": "one two three four five six"}
	assert.Equal(t, New().Format(meta), Formatter{}.Format(meta))
}

func TestYear(t *testing.T) {
	tests := []struct {
		meta domain.Metadata
		want string
	}{
		{domain.Metadata{"year": "2020"}, "2020"},
		{domain.Metadata{"publication_date": "Jan 15, 2019"}, "2019"},
		{domain.Metadata{"date": "2018-12-31"}, "2018"},
		{domain.Metadata{"publish_date": "Published: 2017"}, "2017"},
		{domain.Metadata{"year": 1999.0}, "1999"},
		{domain.Metadata{"year": "1850"}, ""},
		{domain.Metadata{"random_field": "nothing"}, ""},
		{domain.Metadata{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Year(tt.meta), "metadata %v", tt.meta)
	}
}

func TestShortTitle(t *testing.T) {
	f := New()
	assert.Equal(t, "This is a very long...", f.ShortTitle("This is a very long document title that should be shortened"))
	assert.Equal(t, "Short Title", f.ShortTitle("Short Title"))
	assert.Equal(t, "One two three...", Formatter{TitleWords: 3}.ShortTitle("One two three four five six seven"))
}

func TestShortURL(t *testing.T) {
	f := New()
	long := "https://www.example.com/path/to/a/very/long/resource"
	assert.Equal(t, long[:30]+"...", f.ShortURL(long))
	assert.Equal(t, "https://short.url", f.ShortURL("https://short.url"))
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "Anonymous"},
		{"Jane Smith", "Jane Smith"},
		{"Jane Smith, John Doe", "Jane Smith & John Doe"},
		{"Jane Smith; John Doe; Ann Lee", "Jane Smith et al."},
		{"Smith, J.R., Doe, A.", "Smith, J.R. & Doe, A."},
		{"Jane Smith and John Doe", "Jane Smith & John Doe"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAuthors(tt.raw), "authors %q", tt.raw)
	}
}

func TestFootnotes(t *testing.T) {
	f := New()
	assert.Equal(t, "", f.Footnotes(nil))

	out := f.Footnotes([]domain.Metadata{
		{"source_type": "official_guideline", "organization": "WHO"},
		{"source_type": "web_page", "site_name": "Mayo Clinic"},
	})
	assert.Equal(t, "\n\n**References:**\n1. [WHO]\n2. [Mayo Clinic]\n", out)
	assert.True(t, strings.HasPrefix(out, "\n\n**References:**"))
}
