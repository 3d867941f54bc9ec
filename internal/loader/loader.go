// Package loader extracts text and provenance metadata from document files.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/markdown"
)

// ErrUnsupportedFormat is returned for file extensions no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// SidecarSuffix names the optional metadata file next to a document.
const SidecarSuffix = ".meta.yaml"

// Document is extracted text plus the metadata its chunks will inherit.
type Document struct {
	ID       string
	Text     string
	Metadata domain.Metadata
}

type parseFunc func(l *Loader, name string, data []byte) ([]Document, error)

var parsers = map[string]parseFunc{
	".pdf":      (*Loader).parsePDF,
	".docx":     (*Loader).parseDOCX,
	".txt":      (*Loader).parseText,
	".csv":      (*Loader).parseCSV,
	".json":     (*Loader).parseJSON,
	".md":       (*Loader).parseMarkdown,
	".markdown": (*Loader).parseMarkdown,
}

// Supported reports whether path has an extension the loader can parse.
func Supported(path string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Loader dispatches files to per-format parsers.
type Loader struct {
	markdown *markdown.Splitter
	logger   *slog.Logger
}

// New creates a Loader. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		markdown: markdown.NewSplitter(),
		logger:   logger,
	}
}

// Load reads the file at path and returns its documents. Values from an
// optional "<path>.meta.yaml" sidecar override extracted metadata.
func (l *Loader) Load(path string) ([]Document, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	sidecar, err := readSidecar(path + SidecarSuffix)
	if err != nil {
		return nil, err
	}

	return l.Parse(path, data, sidecar)
}

// Parse extracts documents from in-memory content. name supplies the
// extension and the source_id; extra overrides extracted metadata.
func (l *Loader) Parse(name string, data []byte, extra domain.Metadata) ([]Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	parse, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	docs, err := parse(l, name, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	for i := range docs {
		meta := docs[i].Metadata
		if meta == nil {
			meta = domain.Metadata{}
		}
		meta[domain.MetaSourceID] = name
		meta["format"] = strings.TrimPrefix(ext, ".")
		if _, ok := meta[domain.MetaSourceType]; !ok {
			meta[domain.MetaSourceType] = string(domain.SourceGeneric)
		}
		for k, v := range extra {
			meta[k] = v
		}
		docs[i].Metadata = meta
		if docs[i].ID == "" {
			docs[i].ID = fmt.Sprintf("%s#%d", name, i)
		}
	}

	l.logger.Debug("Parsed document", "name", name, "documents", len(docs))
	return docs, nil
}

// readSidecar loads a YAML metadata mapping. A missing file is not an error.
func readSidecar(path string) (domain.Metadata, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sidecar %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", path, err)
	}

	meta := domain.Metadata{}
	for k, v := range raw {
		if s, ok := scalar(v); ok {
			meta[k] = s
		}
	}
	return meta, nil
}

// scalar keeps strings and numbers; other values are rendered as strings,
// nested structures are dropped.
func scalar(v any) (any, bool) {
	switch t := v.(type) {
	case string, int, int64, float64:
		return t, true
	case bool:
		return fmt.Sprint(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := scalar(item); ok {
				parts = append(parts, fmt.Sprint(s))
			}
		}
		return strings.Join(parts, ", "), len(parts) > 0
	default:
		if s, ok := v.(fmt.Stringer); ok {
			return s.String(), true
		}
		return nil, false
	}
}
