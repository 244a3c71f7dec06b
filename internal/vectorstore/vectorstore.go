// Package vectorstore defines persisted vector storage for the embedding index.
//
// A store lives at one location (a directory or a database collection). The
// location either holds a complete store or nothing: a build becomes visible
// only when its Builder commits, and an aborted build leaves no trace.
// Distances are cosine distances, 1 - cos(a, b), smaller is closer.
package vectorstore

import (
	"context"
	"errors"
	"math"

	"github.com/dream-ai/hammond/internal/domain"
)

// ErrDimensionMismatch is returned when a vector's length differs from the store's
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Metadata describes how a store was built
type Metadata struct {
	Dimension int
	Model     string
	Records   int
}

// Store is one persisted location
type Store interface {
	// Exists reports whether a complete store is present, by marker only
	Exists(ctx context.Context) (bool, error)
	// Open opens the existing store for reading
	Open(ctx context.Context) (Reader, error)
	// Create starts a new build; nothing is visible until Commit
	Create(ctx context.Context, model string) (Builder, error)
	// Drop deletes the persisted store
	Drop(ctx context.Context) error
}

// Builder accumulates records for a new store
type Builder interface {
	Add(ctx context.Context, records []domain.VectorRecord) error
	// Commit publishes the store and returns a reader over it
	Commit(ctx context.Context) (Reader, error)
	// Abort discards everything added so far
	Abort(ctx context.Context) error
}

// Reader answers nearest-neighbour queries. It is safe for concurrent use.
type Reader interface {
	// Search returns at most k records ordered by increasing distance
	Search(ctx context.Context, vec []float32, k int) ([]domain.VectorRecord, error)
	Metadata() Metadata
	Close() error
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
