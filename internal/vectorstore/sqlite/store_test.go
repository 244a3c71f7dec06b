package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/vectorstore"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "index"), nil)
}

func record(pos int, text string, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:   "rec-" + strconv.Itoa(pos),
		Text: text,
		Metadata: map[string]string{
			domain.MetaSource:   "doc.txt",
			domain.MetaPosition: strconv.Itoa(pos),
		},
		Embedding: vec,
	}
}

func buildStore(t *testing.T, s *Store, records ...domain.VectorRecord) vectorstore.Reader {
	t.Helper()
	ctx := context.Background()

	b, err := s.Create(ctx, "test-model")
	require.NoError(t, err)
	require.NoError(t, b.Add(ctx, records))
	r, err := b.Commit(ctx)
	require.NoError(t, err)
	return r
}

func TestStore_BuildAndSearch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	r := buildStore(t, s,
		record(0, "north", 0, 1),
		record(1, "east", 1, 0),
		record(2, "north-east", 1, 1),
	)
	defer r.Close()

	exists, err = s.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	results, err := r.Search(ctx, []float32{0.1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "north", results[0].Text)
	assert.Equal(t, "north-east", results[1].Text)
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Equal(t, "doc.txt", results[0].Source())
	assert.Equal(t, 0, results[0].Position())

	meta := r.Metadata()
	assert.Equal(t, 2, meta.Dimension)
	assert.Equal(t, "test-model", meta.Model)
	assert.Equal(t, 3, meta.Records)
}

func TestStore_SearchFewerThanK(t *testing.T) {
	s := setupTestStore(t)
	r := buildStore(t, s, record(0, "only", 1, 2, 3))

	results, err := r.Search(context.Background(), []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
}

func TestStore_ReopenAnswersIdentically(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	built := buildStore(t, s,
		record(0, "alpha", 1, 0, 0),
		record(1, "beta", 0, 1, 0),
		record(2, "gamma", 0, 0, 1),
	)

	reopened, err := New(filepath.Dir(s.Path()), nil).Open(ctx)
	require.NoError(t, err)
	defer reopened.Close()

	query := []float32{0.2, 0.9, 0.1}
	want, err := built.Search(ctx, query, 3)
	require.NoError(t, err)
	got, err := reopened.Search(ctx, query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_AbortLeavesNothing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b, err := s.Create(ctx, "m")
	require.NoError(t, err)
	require.NoError(t, b.Add(ctx, []domain.VectorRecord{record(0, "x", 1, 0)}))
	require.NoError(t, b.Abort(ctx))

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoFileExists(t, s.Path()+buildSuffix)
}

func TestStore_IncompleteBuildIsNotAStore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "m")
	require.NoError(t, err)

	// a crashed build leaves only the temporary file
	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Open(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// the next build replaces the leftover
	r := buildStore(t, s, record(0, "fresh", 1))
	assert.Equal(t, 1, r.Metadata().Records)
}

func TestStore_DimensionMismatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b, err := s.Create(ctx, "m")
	require.NoError(t, err)
	err = b.Add(ctx, []domain.VectorRecord{record(0, "a", 1, 0), record(1, "b", 1, 0, 0)})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
	require.NoError(t, b.Abort(ctx))

	r := buildStore(t, s, record(0, "a", 1, 0))
	_, err = r.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestStore_Drop(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	buildStore(t, s, record(0, "a", 1))

	require.NoError(t, s.Drop(ctx))
	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	// dropping an absent store is not an error
	assert.NoError(t, s.Drop(ctx))
}

func TestFloat32Roundtrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, bytesToFloat32Slice([]byte{1, 2, 3}))
}
