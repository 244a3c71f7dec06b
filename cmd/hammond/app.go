package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dream-ai/hammond/config"
	"github.com/dream-ai/hammond/internal/assistant"
	"github.com/dream-ai/hammond/internal/chat"
	"github.com/dream-ai/hammond/internal/chunker"
	"github.com/dream-ai/hammond/internal/documents"
	"github.com/dream-ai/hammond/internal/embeddings"
	"github.com/dream-ai/hammond/internal/index"
	"github.com/dream-ai/hammond/internal/llm"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/vectorstore"
	"github.com/dream-ai/hammond/internal/vectorstore/pgvector"
	"github.com/dream-ai/hammond/internal/vectorstore/sqlite"
)

// app is everything a command needs, wired from config
type app struct {
	store     vectorstore.Store
	assistant *assistant.Assistant
	pool      *pgxpool.Pool
}

// newApp wires the pipeline. Without a generator the assistant can build and
// load the index but not answer.
func newApp(ctx context.Context, cfg *config.Config, withGenerator bool) (*app, error) {
	a := &app{}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	embedder, err := embeddings.New(cfg, logging.New("embeddings"))
	if err != nil {
		a.Close()
		return nil, err
	}

	var gen llm.Generator
	if withGenerator {
		gen, err = llm.New(ctx, cfg, logging.New("llm"))
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	p := cfg.Processing
	ix := index.New(store, embedder,
		index.WithBatchSize(p.BatchSize),
		index.WithConcurrency(p.Concurrency),
		index.WithLogger(logging.New("index")),
	)
	ch := chunker.New(
		chunker.WithChunkSize(p.ChunkSize),
		chunker.WithOverlap(p.ChunkOverlap),
		chunker.WithLogger(logging.New("chunker")),
	)

	a.assistant = assistant.New(ix, gen, documents.NewLoader(logging.New("documents")), cfg.Paths.DocumentsDir,
		assistant.WithChunker(ch),
		assistant.WithEngineOptions(
			chat.WithTopK(p.TopK),
			chat.WithMaxContextTokens(p.MaxContextTokens),
			chat.WithGenerationOptions(llm.Options{
				Temperature: cfg.Generation.Temperature,
				MaxTokens:   cfg.Generation.MaxTokens,
			}),
		),
		assistant.WithLogger(logging.New("assistant")),
	)
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Index.Backend {
	case config.BackendSQLite:
		return sqlite.New(cfg.Index.Dir, logging.New("sqlite")), nil
	case config.BackendPGVector:
		pool, err := pgvector.Connect(ctx, cfg.Index.ConnectionString)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		return pgvector.New(pool, cfg.Index.Collection, logging.New("pgvector")), nil
	}
	return nil, fmt.Errorf("unknown index backend: %q", cfg.Index.Backend)
}

// location names where the index lives
func location(cfg *config.Config) string {
	if cfg.Index.Backend == config.BackendPGVector {
		return "collection " + cfg.Index.Collection
	}
	return cfg.Index.Dir
}

// Close releases the index handle and any database connections
func (a *app) Close() {
	if a.assistant != nil {
		if err := a.assistant.Reset(); err != nil {
			logging.New("app").WithError(err).Warn("failed to close index")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
