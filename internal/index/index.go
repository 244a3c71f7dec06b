// Package index is the embedding index: it builds a persisted vector store from
// segments once, reopens it on later runs, and answers nearest-neighbour queries.
package index

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/embeddings"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/vectorstore"
)

// State is the lifecycle state of an Index
type State int

const (
	Unbuilt State = iota
	Building
	Ready
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case Building:
		return "building"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Defaults for build batching
const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 2
)

// Option configures an Index
type Option func(*Index)

// WithBatchSize sets how many segments go into one embedding call
func WithBatchSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedding calls may run at once during a build
func WithConcurrency(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(ix *Index) {
		ix.log = log
	}
}

// Index moves Unbuilt -> Building -> Ready. Initialize is serialized;
// Search is safe for concurrent use once Ready.
type Index struct {
	store       vectorstore.Store
	embedder    embeddings.Embedder
	batchSize   int
	concurrency int
	log         *logrus.Entry

	buildMu sync.Mutex

	mu     sync.RWMutex
	state  State
	handle *Handle
}

// New creates an unbuilt index over store
func New(store vectorstore.Store, embedder embeddings.Embedder, opts ...Option) *Index {
	ix := &Index{
		store:       store,
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.log = logging.OrDiscard(ix.log)
	return ix
}

// State returns the current lifecycle state
func (ix *Index) State() State {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.state
}

func (ix *Index) setState(s State, h *Handle) {
	ix.mu.Lock()
	ix.state = s
	ix.handle = h
	ix.mu.Unlock()
}

// Initialize returns a handle to the persisted store, building it first if
// none exists. When a store exists, segments is ignored and never consumed.
// Building with no segments fails with domain.ErrUninitializedIndex. A failed
// build leaves no store behind.
func (ix *Index) Initialize(ctx context.Context, segments iter.Seq[domain.Segment]) (*Handle, error) {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	ix.mu.RLock()
	h := ix.handle
	ix.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	exists, err := ix.store.Exists(ctx)
	if err != nil {
		return nil, err
	}

	if exists {
		reader, err := ix.store.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		meta := reader.Metadata()
		if meta.Model != "" && meta.Model != ix.embedder.ModelName() {
			ix.log.WithFields(logrus.Fields{
				"stored_model":  meta.Model,
				"current_model": ix.embedder.ModelName(),
			}).Warn("index was built with a different embedding model")
		}
		ix.log.WithField("records", meta.Records).Info("opened existing index")

		h = newHandle(reader, ix.embedder)
		ix.setState(Ready, h)
		return h, nil
	}

	ix.setState(Building, nil)
	reader, err := ix.build(ctx, segments)
	if err != nil {
		ix.setState(Unbuilt, nil)
		return nil, err
	}

	h = newHandle(reader, ix.embedder)
	ix.setState(Ready, h)
	return h, nil
}

// Search embeds query and returns up to k nearest records, closest first
func (ix *Index) Search(ctx context.Context, query string, k int) ([]domain.VectorRecord, error) {
	ix.mu.RLock()
	h := ix.handle
	ix.mu.RUnlock()
	return h.Search(ctx, query, k)
}

// Close releases the handle and returns the index to Unbuilt.
// The persisted store is kept.
func (ix *Index) Close() error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	ix.mu.Lock()
	h := ix.handle
	ix.handle = nil
	ix.state = Unbuilt
	ix.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}

func (ix *Index) build(ctx context.Context, segments iter.Seq[domain.Segment]) (vectorstore.Reader, error) {
	var segs []domain.Segment
	blank := 0
	if segments != nil {
		for s := range segments {
			if strings.TrimSpace(s.Text) == "" {
				blank++
				continue
			}
			segs = append(segs, s)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, domain.ErrUninitializedIndex
	}

	log := ix.log.WithField("segments", len(segs))
	if blank > 0 {
		log.WithField("blank", blank).Debug("skipped blank segments")
	}
	log.Info("building index")

	vecs, err := ix.embedAll(ctx, segs)
	if err != nil {
		return nil, err
	}

	builder, err := ix.store.Create(ctx, ix.embedder.ModelName())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	for start := 0; start < len(segs); start += ix.batchSize {
		end := min(start+ix.batchSize, len(segs))
		records := make([]domain.VectorRecord, 0, end-start)
		for i := start; i < end; i++ {
			records = append(records, domain.VectorRecord{
				ID:        uuid.NewString(),
				Text:      segs[i].Text,
				Metadata:  domain.CopyMetadata(segs[i].Metadata),
				Embedding: vecs[i],
			})
		}
		if err := builder.Add(ctx, records); err != nil {
			ix.abort(ctx, builder)
			return nil, fmt.Errorf("failed to store records: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		ix.abort(ctx, builder)
		return nil, err
	}

	reader, err := builder.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit index: %w", err)
	}
	log.WithField("dimension", reader.Metadata().Dimension).Info("index built")
	return reader, nil
}

func (ix *Index) abort(ctx context.Context, b vectorstore.Builder) {
	if err := b.Abort(context.WithoutCancel(ctx)); err != nil {
		ix.log.WithError(err).Error("failed to discard incomplete index")
	}
}

// embedAll embeds segments in batches, keeping input order
func (ix *Index) embedAll(ctx context.Context, segs []domain.Segment) ([][]float32, error) {
	vecs := make([][]float32, len(segs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for start := 0; start < len(segs); start += ix.batchSize {
		end := min(start+ix.batchSize, len(segs))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, s := range segs[start:end] {
				texts = append(texts, s.Text)
			}

			out, err := ix.embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}
			if len(out) != len(texts) {
				return domain.NewEmbeddingError("embed", 1,
					fmt.Errorf("provider returned %d vectors for %d texts", len(out), len(texts)))
			}
			copy(vecs[start:end], out)

			ix.log.WithField("batch_end", end).Debug("embedded batch")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() == nil && !errors.Is(err, domain.ErrEmbeddingProvider) {
			err = domain.NewEmbeddingError("embed", 1, err)
		}
		return nil, err
	}

	dim := len(vecs[0])
	for i, v := range vecs {
		if len(v) == 0 || len(v) != dim {
			return nil, domain.NewEmbeddingError("embed", 1,
				fmt.Errorf("segment %d has %d dimensions, want %d", i, len(v), dim))
		}
	}
	return vecs, nil
}

// Handle is a live, read-only view of a persisted index
type Handle struct {
	reader   vectorstore.Reader
	embedder embeddings.Embedder
	closed   atomic.Bool
}

func newHandle(r vectorstore.Reader, e embeddings.Embedder) *Handle {
	return &Handle{reader: r, embedder: e}
}

// Metadata describes the underlying store
func (h *Handle) Metadata() vectorstore.Metadata {
	return h.reader.Metadata()
}

// Search embeds query and returns up to k nearest records, closest first.
// A nil or closed handle fails with domain.ErrIndexNotReady.
func (h *Handle) Search(ctx context.Context, query string, k int) ([]domain.VectorRecord, error) {
	if h == nil || h.closed.Load() {
		return nil, domain.ErrIndexNotReady
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	vecs, err := h.embedder.Embed(ctx, []string{query})
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingProvider) && ctx.Err() == nil {
			err = domain.NewEmbeddingError("embed query", 1, err)
		}
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, domain.NewEmbeddingError("embed query", 1,
			fmt.Errorf("provider returned %d vectors for 1 text", len(vecs)))
	}

	records, err := h.reader.Search(ctx, vecs[0], k)
	if errors.Is(err, vectorstore.ErrDimensionMismatch) {
		return nil, domain.NewEmbeddingError("search", 1, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	return records, nil
}

// Close releases the reader; later searches fail with domain.ErrIndexNotReady
func (h *Handle) Close() error {
	if h == nil || h.closed.Swap(true) {
		return nil
	}
	return h.reader.Close()
}
