//go:build integration

package pgvector

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-ai/hammond/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("HAMMOND_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("HAMMOND_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool, "hammond_test_"+strconv.FormatInt(int64(os.Getpid()), 10), nil)
	require.NoError(t, s.Drop(ctx))
	t.Cleanup(func() { _ = s.Drop(context.Background()) })
	return s
}

func record(text string, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:        uuid.NewString(),
		Text:      text,
		Metadata:  map[string]string{domain.MetaSource: "doc.txt", domain.MetaPosition: "0"},
		Embedding: vec,
	}
}

func TestStore_BuildSearchReopen(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	b, err := s.Create(ctx, "test-model")
	require.NoError(t, err)
	require.NoError(t, b.Add(ctx, []domain.VectorRecord{
		record("north", 0, 1, 0),
		record("east", 1, 0, 0),
	}))
	r, err := b.Commit(ctx)
	require.NoError(t, err)

	results, err := r.Search(ctx, []float32{0.1, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "north", results[0].Text)
	assert.Equal(t, "doc.txt", results[0].Source())

	reopened, err := s.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Metadata().Records)
	assert.Equal(t, "test-model", reopened.Metadata().Model)

	again, err := reopened.Search(ctx, []float32{0.1, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, results[0].ID, again[0].ID)
}

func TestStore_AbortRollsBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b, err := s.Create(ctx, "m")
	require.NoError(t, err)
	require.NoError(t, b.Add(ctx, []domain.VectorRecord{record("x", 1, 0)}))
	require.NoError(t, b.Abort(ctx))

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}
