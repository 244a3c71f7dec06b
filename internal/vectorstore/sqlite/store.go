// Package sqlite stores the vector index as a single SQLite file in a directory.
//
// The file <dir>/index.db is the store marker. Builds write <dir>/index.db.building
// and rename it into place on commit, so a crashed or aborted build never
// leaves a file that looks complete.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/vectorstore"
)

const (
	// FileName is the store marker inside the index directory
	FileName = "index.db"

	buildSuffix = ".building"
)

const schema = `
CREATE TABLE records (
	id        TEXT PRIMARY KEY,
	position  INTEGER NOT NULL,
	content   TEXT NOT NULL,
	metadata  TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE TABLE index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Store is a directory-backed vector store
type Store struct {
	dir string
	log *logrus.Entry
}

var _ vectorstore.Store = (*Store)(nil)

// New creates a store rooted at dir. Nothing is touched until Create.
func New(dir string, log *logrus.Entry) *Store {
	return &Store{dir: dir, log: logging.OrDiscard(log)}
}

// Path returns the database file path
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

func (s *Store) buildPath() string {
	return s.Path() + buildSuffix
}

// Exists reports whether the marker file is present
func (s *Store) Exists(_ context.Context) (bool, error) {
	info, err := os.Stat(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat index: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("index path %s is a directory", s.Path())
	}
	return true, nil
}

// Open loads the existing store into memory
func (s *Store) Open(ctx context.Context) (vectorstore.Reader, error) {
	ok, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no index at %s: %w", s.Path(), os.ErrNotExist)
	}

	db, err := openDB(s.Path())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return load(ctx, db)
}

// Create starts a new build, discarding any leftover from an interrupted one
func (s *Store) Create(_ context.Context, model string) (vectorstore.Builder, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp := s.buildPath()
	if err := os.Remove(tmp); err == nil {
		s.log.WithField("path", tmp).Warn("removed incomplete index build")
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove incomplete build: %w", err)
	}

	db, err := openDB(tmp)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &builder{db: db, tmp: tmp, final: s.Path(), model: model}, nil
}

// Drop deletes the store and any incomplete build
func (s *Store) Drop(_ context.Context) error {
	for _, p := range []string{s.Path(), s.buildPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

type builder struct {
	db    *sql.DB
	tmp   string
	final string
	model string
	dim   int
	n     int
}

func (b *builder) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (id, position, content, metadata, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	dim := b.dim
	for _, r := range records {
		if dim == 0 {
			dim = len(r.Embedding)
		}
		if len(r.Embedding) == 0 || len(r.Embedding) != dim {
			return fmt.Errorf("record %s has %d dimensions, want %d: %w",
				r.ID, len(r.Embedding), dim, vectorstore.ErrDimensionMismatch)
		}

		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Position(), r.Text, string(md), float32SliceToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	b.dim = dim
	b.n += len(records)
	return nil
}

func (b *builder) Commit(ctx context.Context) (vectorstore.Reader, error) {
	meta := map[string]string{
		"dimension":  strconv.Itoa(b.dim),
		"model":      b.model,
		"records":    strconv.Itoa(b.n),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := b.db.ExecContext(ctx, "INSERT INTO index_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			b.Abort(ctx)
			return nil, fmt.Errorf("failed to write index metadata: %w", err)
		}
	}

	reader, err := load(ctx, b.db)
	if err != nil {
		b.Abort(ctx)
		return nil, err
	}

	if err := b.db.Close(); err != nil {
		os.Remove(b.tmp)
		return nil, fmt.Errorf("failed to close index: %w", err)
	}
	if err := os.Rename(b.tmp, b.final); err != nil {
		os.Remove(b.tmp)
		return nil, fmt.Errorf("failed to publish index: %w", err)
	}
	return reader, nil
}

func (b *builder) Abort(_ context.Context) error {
	b.db.Close()
	if err := os.Remove(b.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove incomplete build: %w", err)
	}
	return nil
}

// reader holds every record in memory and searches by brute force
type reader struct {
	records []domain.VectorRecord
	meta    vectorstore.Metadata
}

func load(ctx context.Context, db *sql.DB) (*reader, error) {
	r := &reader{}

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		return nil, fmt.Errorf("failed to read index metadata: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan index metadata: %w", err)
		}
		switch k {
		case "dimension":
			r.meta.Dimension, _ = strconv.Atoi(v)
		case "model":
			r.meta.Model = v
		}
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, "SELECT id, content, metadata, embedding FROM records ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec  domain.VectorRecord
			md   string
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Text, &md, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(md), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		rec.Embedding = bytesToFloat32Slice(blob)
		r.records = append(r.records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	r.meta.Records = len(r.records)
	if r.meta.Dimension == 0 && len(r.records) > 0 {
		r.meta.Dimension = len(r.records[0].Embedding)
	}
	return r, nil
}

func (r *reader) Search(_ context.Context, vec []float32, k int) ([]domain.VectorRecord, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(vec) != r.meta.Dimension {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(vec), r.meta.Dimension, vectorstore.ErrDimensionMismatch)
	}

	scored := make([]domain.VectorRecord, len(r.records))
	for i, rec := range r.records {
		rec.Metadata = domain.CopyMetadata(rec.Metadata)
		rec.Distance = vectorstore.CosineDistance(vec, rec.Embedding)
		scored[i] = rec
	}
	slices.SortStableFunc(scored, func(a, b domain.VectorRecord) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (r *reader) Metadata() vectorstore.Metadata { return r.meta }

func (r *reader) Close() error { return nil }

// float32SliceToBytes converts []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
