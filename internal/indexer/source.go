package indexer

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/anjanaaa29/rag-reader/internal/loader"
)

// Source lists document references and loads them.
type Source interface {
	Name() string
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, ref string) ([]loader.Document, error)
}

// Revisioner is implemented by sources that can report a content revision,
// such as a commit SHA.
type Revisioner interface {
	Revision(ctx context.Context) (string, error)
}

// DirSource loads every supported file under a directory tree.
type DirSource struct {
	root   string
	loader *loader.Loader
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string, l *loader.Loader) *DirSource {
	return &DirSource{root: dir, loader: l}
}

func (s *DirSource) Name() string { return s.root }

// List walks the tree in lexical order, skipping unsupported files and
// metadata sidecars.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, loader.SidecarSuffix) || !loader.Supported(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func (s *DirSource) Load(ctx context.Context, ref string) ([]loader.Document, error) {
	return s.loader.Load(ref)
}

// FileSource loads an explicit list of files. Unsupported files fail
// individually when loaded.
type FileSource struct {
	paths  []string
	loader *loader.Loader
}

func NewFileSource(paths []string, l *loader.Loader) *FileSource {
	return &FileSource{paths: paths, loader: l}
}

func (s *FileSource) Name() string { return strings.Join(s.paths, ",") }

func (s *FileSource) List(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.paths...), nil
}

func (s *FileSource) Load(ctx context.Context, ref string) ([]loader.Document, error) {
	return s.loader.Load(ref)
}
