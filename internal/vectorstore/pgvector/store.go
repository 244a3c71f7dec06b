// Package pgvector stores the vector index as a PostgreSQL table using the
// pgvector extension. The collection table is the store marker; it is created
// inside the build transaction and so only becomes visible on commit.
package pgvector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/vectorstore"
)

// Store is a collection-backed vector store
type Store struct {
	pool       *pgxpool.Pool
	collection string
	log        *logrus.Entry
}

var _ vectorstore.Store = (*Store)(nil)

// New creates a store for the named collection
func New(pool *pgxpool.Pool, collection string, log *logrus.Entry) *Store {
	return &Store{pool: pool, collection: collection, log: logging.OrDiscard(log)}
}

func (s *Store) table() string {
	return pgx.Identifier{s.collection}.Sanitize()
}

func (s *Store) metaTable() string {
	return pgx.Identifier{s.collection + "_meta"}.Sanitize()
}

// Exists reports whether the collection table exists
func (s *Store) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, s.table()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return exists, nil
}

// Open returns a reader over the existing collection
func (s *Store) Open(ctx context.Context) (vectorstore.Reader, error) {
	r := &reader{pool: s.pool, table: s.table()}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT key, value FROM %s`, s.metaTable()))
	if err != nil {
		return nil, fmt.Errorf("failed to read collection metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan collection metadata: %w", err)
		}
		switch k {
		case "dimension":
			r.meta.Dimension, _ = strconv.Atoi(v)
		case "model":
			r.meta.Model = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read collection metadata: %w", err)
	}

	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table())).Scan(&r.meta.Records); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	return r, nil
}

// Create begins the build transaction
func (s *Store) Create(ctx context.Context, model string) (vectorstore.Builder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to enable pgvector: %w", err)
	}

	return &builder{store: s, tx: tx, model: model}, nil
}

// Drop deletes the collection
func (s *Store) Drop(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s, %s`, s.table(), s.metaTable()))
	if err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

type builder struct {
	store *Store
	tx    pgx.Tx
	model string
	dim   int
	n     int
}

// createTables runs on the first Add, once the dimension is known
func (b *builder) createTables(ctx context.Context, dim int) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE %s (
			id        uuid PRIMARY KEY,
			position  integer NOT NULL,
			content   text NOT NULL,
			metadata  jsonb NOT NULL,
			embedding vector(%d) NOT NULL
		);
		CREATE TABLE %s (
			key   text PRIMARY KEY,
			value text NOT NULL
		)`, b.store.table(), dim, b.store.metaTable())

	if _, err := b.tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	b.dim = dim
	return nil
}

func (b *builder) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if b.dim == 0 {
		if err := b.createTables(ctx, len(records[0].Embedding)); err != nil {
			return err
		}
	}

	insert := fmt.Sprintf(`INSERT INTO %s (id, position, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)`, b.store.table())

	batch := &pgx.Batch{}
	for _, r := range records {
		if len(r.Embedding) != b.dim {
			return fmt.Errorf("record %s has %d dimensions, want %d: %w",
				r.ID, len(r.Embedding), b.dim, vectorstore.ErrDimensionMismatch)
		}
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return fmt.Errorf("invalid record id %q: %w", r.ID, err)
		}
		batch.Queue(insert, id, r.Position(), r.Text, r.Metadata, pgvector.NewVector(r.Embedding))
	}

	br := b.tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}

	b.n += len(records)
	return nil
}

func (b *builder) Commit(ctx context.Context) (vectorstore.Reader, error) {
	if b.dim == 0 {
		b.tx.Rollback(ctx)
		return nil, fmt.Errorf("cannot commit an empty collection")
	}

	meta := map[string]string{
		"dimension":  strconv.Itoa(b.dim),
		"model":      b.model,
		"records":    strconv.Itoa(b.n),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	insert := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2)`, b.store.metaTable())
	for k, v := range meta {
		if _, err := b.tx.Exec(ctx, insert, k, v); err != nil {
			b.tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to write collection metadata: %w", err)
		}
	}

	if err := b.tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit collection: %w", err)
	}

	return &reader{
		pool:  b.store.pool,
		table: b.store.table(),
		meta:  vectorstore.Metadata{Dimension: b.dim, Model: b.model, Records: b.n},
	}, nil
}

func (b *builder) Abort(ctx context.Context) error {
	if err := b.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to roll back build: %w", err)
	}
	return nil
}

type reader struct {
	pool  *pgxpool.Pool
	table string
	meta  vectorstore.Metadata
}

// Search finds the nearest records by cosine distance
func (r *reader) Search(ctx context.Context, vec []float32, k int) ([]domain.VectorRecord, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(vec) != r.meta.Dimension {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(vec), r.meta.Dimension, vectorstore.ErrDimensionMismatch)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, content, metadata, embedding, embedding <=> $1 AS distance
		 FROM %s
		 ORDER BY embedding <=> $1
		 LIMIT $2`, r.table),
		pgvector.NewVector(vec), k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}
	defer rows.Close()

	var records []domain.VectorRecord
	for rows.Next() {
		var (
			id  uuid.UUID
			rec domain.VectorRecord
			emb pgvector.Vector
		)
		if err := rows.Scan(&id, &rec.Text, &rec.Metadata, &emb, &rec.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.ID = id.String()
		rec.Embedding = emb.Slice()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *reader) Metadata() vectorstore.Metadata { return r.meta }

// Close is a no-op; the pool belongs to the caller
func (r *reader) Close() error { return nil }
