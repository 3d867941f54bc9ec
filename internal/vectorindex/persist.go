package vectorindex

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/anjanaaa29/rag-reader/internal/domain"
)

const (
	// VectorsFile is the vector-store artifact inside an index directory.
	VectorsFile = "vectors.db"

	// InfoFile is the metadata record inside an index directory.
	InfoFile = "index.yaml"
)

const schema = `
CREATE TABLE vectors (
	id           INTEGER PRIMARY KEY,
	chunk_offset INTEGER NOT NULL,
	text         TEXT NOT NULL,
	metadata     TEXT NOT NULL,
	vector       BLOB NOT NULL
);`

// Persist writes the index to dir, replacing any index already there.
// The vector artifact is written to a temporary file and renamed into place.
func (idx *Index) Persist(dir string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	dbPath := filepath.Join(dir, VectorsFile)
	tmpPath := dbPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := idx.writeVectors(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		return fmt.Errorf("replace vector store: %w", err)
	}

	data, err := yaml.Marshal(idx.infoLocked())
	if err != nil {
		return fmt.Errorf("marshal index info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, InfoFile), data, 0o644); err != nil {
		return fmt.Errorf("write index info: %w", err)
	}

	idx.logger.Info("Persisted index", "path", dir, "chunks", len(idx.entries))
	return nil
}

func (idx *Index) writeVectors(path string) error {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare(`INSERT INTO vectors (id, chunk_offset, text, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range idx.entries {
		meta, err := json.Marshal(e.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata of chunk %d: %w", e.ID, err)
		}
		if _, err := stmt.Exec(e.ID, e.Chunk.Offset, e.Chunk.Text, string(meta), encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vector store: %w", err)
	}
	return nil
}

// Load reads an index previously written by Persist. It fails with
// domain.ErrIndexNotFound when dir does not exist or lacks either the vector
// artifact or the metadata record.
func Load(dir string, opts ...Option) (*Index, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, dir)
	}

	dbPath := filepath.Join(dir, VectorsFile)
	infoPath := filepath.Join(dir, InfoFile)
	for _, p := range []string{dbPath, infoPath} {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: missing %s", domain.ErrIndexNotFound, p)
		}
	}

	raw, err := os.ReadFile(infoPath)
	if err != nil {
		return nil, fmt.Errorf("read index info: %w", err)
	}
	var meta Info
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse index info: %w", err)
	}

	idx := newIndex(meta.EmbeddingModelName, append([]Option{WithName(meta.IndexName)}, opts...)...)
	idx.dim = meta.Dimension
	if !meta.CreatedAt.IsZero() {
		idx.createdAt = meta.CreatedAt
	}

	if err := idx.readVectors(dbPath); err != nil {
		return nil, err
	}

	idx.logger.Info("Loaded index", "path", dir, "chunks", len(idx.entries), "model", idx.model)
	return idx, nil
}

func (idx *Index) readVectors(path string) error {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, chunk_offset, text, metadata, vector FROM vectors ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query vector store: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e        Entry
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&e.ID, &e.Chunk.Offset, &e.Chunk.Text, &metaJSON, &blob); err != nil {
			return fmt.Errorf("scan vector row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &e.Chunk.Metadata); err != nil {
			return fmt.Errorf("decode metadata of chunk %d: %w", e.ID, err)
		}
		e.Vector = decodeVector(blob)
		if idx.dim == 0 {
			idx.dim = len(e.Vector)
		}
		if len(e.Vector) != idx.dim {
			return fmt.Errorf("%w: stored chunk %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, e.ID, len(e.Vector), idx.dim)
		}
		idx.entries = append(idx.entries, e)
	}
	return rows.Err()
}

// encodeVector stores float32 values as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
