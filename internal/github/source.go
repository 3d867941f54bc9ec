package github

import (
	"context"
	"fmt"
	"time"

	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/loader"
)

// Source adapts a Fetcher to the indexing pipeline. Every document is cited
// as a web page.
type Source struct {
	fetcher *Fetcher
	loader  *loader.Loader
	now     func() time.Time
}

// NewSource creates a Source.
func NewSource(f *Fetcher, l *loader.Loader) *Source {
	return &Source{fetcher: f, loader: l, now: time.Now}
}

func (s *Source) Name() string {
	return fmt.Sprintf("github.com/%s/%s", s.fetcher.Repository(), s.fetcher.basePath)
}

func (s *Source) List(ctx context.Context) ([]string, error) {
	return s.fetcher.ListDocs(ctx)
}

// Load fetches one file and parses it by extension.
func (s *Source) Load(ctx context.Context, ref string) ([]loader.Document, error) {
	doc, err := s.fetcher.FetchDoc(ctx, ref)
	if err != nil {
		return nil, err
	}

	extra := domain.Metadata{
		domain.MetaSourceType: string(domain.SourceWebPage),
		"site_name":           "GitHub " + s.fetcher.Repository(),
		"url":                 doc.URL,
		"access_date":         s.now().UTC().Format("2006-01-02"),
		"blob_sha":            doc.SHA,
	}
	return s.loader.Parse(doc.Path, []byte(doc.Content), extra)
}

// Revision returns the latest commit touching the base directory.
func (s *Source) Revision(ctx context.Context) (string, error) {
	return s.fetcher.GetLatestCommitSHA(ctx)
}
