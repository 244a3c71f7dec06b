package assistant

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-ai/hammond/internal/chunker"
	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/embeddings"
	"github.com/dream-ai/hammond/internal/index"
	"github.com/dream-ai/hammond/internal/llm"
	"github.com/dream-ai/hammond/internal/vectorstore/sqlite"
)

// mockSource implements Source for testing
type mockSource struct {
	docs  []domain.Document
	err   error
	calls int
}

func (m *mockSource) Documents(context.Context, string) (iter.Seq[domain.Document], error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return slices.Values(m.docs), nil
}

// echoGenerator answers with the first retrieved passage body
type echoGenerator struct{}

func (echoGenerator) ModelName() string { return "echo" }

func (echoGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	if len(req.Context) == 0 {
		return req.Question, nil
	}
	_, body, _ := strings.Cut(req.Context[0], "\n")
	return body, nil
}

func starWars() *mockSource {
	return &mockSource{docs: []domain.Document{{
		Content:  "Star Wars premiered in 1977. Its first sequel was released in 1980.",
		Metadata: map[string]string{domain.MetaSource: "films.txt"},
	}}}
}

func setupAssistant(t *testing.T, dir string, src *mockSource) *Assistant {
	t.Helper()
	ix := index.New(sqlite.New(dir, nil), embeddings.NewHashing(256))
	a := New(ix, echoGenerator{}, src, "docs", WithChunker(chunker.New(chunker.WithChunkSize(500), chunker.WithOverlap(50))))
	t.Cleanup(func() { _ = a.Reset() })
	return a
}

func TestAssistant_QueryInitializesLazily(t *testing.T) {
	src := starWars()
	a := setupAssistant(t, t.TempDir(), src)
	assert.Zero(t, src.calls)
	assert.Nil(t, a.History())

	answer, err := a.Query(context.Background(), "When did Star Wars premiere?")
	require.NoError(t, err)
	assert.Contains(t, answer, "1977")
	assert.Equal(t, 1, src.calls)

	ans, err := a.Ask(context.Background(), "And the sequel?")
	require.NoError(t, err)
	assert.Equal(t, []string{"films.txt"}, ans.Sources)
	assert.Equal(t, 1, src.calls)
	assert.Len(t, a.History(), 4)
}

func TestAssistant_ResetStartsOver(t *testing.T) {
	src := starWars()
	a := setupAssistant(t, t.TempDir(), src)
	ctx := context.Background()

	_, err := a.Query(ctx, "When did Star Wars premiere?")
	require.NoError(t, err)
	require.Len(t, a.History(), 2)

	require.NoError(t, a.Reset())
	assert.Nil(t, a.History())

	// the persisted store is reused, so documents are not read again
	_, err = a.Query(ctx, "When did Star Wars premiere?")
	require.NoError(t, err)
	assert.Len(t, a.History(), 2)
	assert.Equal(t, 1, src.calls)
}

func TestAssistant_ClearHistory(t *testing.T) {
	a := setupAssistant(t, t.TempDir(), starWars())

	// nothing to clear yet
	a.ClearHistory(true)

	_, err := a.Query(context.Background(), "When did Star Wars premiere?")
	require.NoError(t, err)

	a.ClearHistory(false)
	assert.Len(t, a.History(), 2)

	a.ClearHistory(true)
	assert.Empty(t, a.History())
}

func TestAssistant_NoDocuments(t *testing.T) {
	a := setupAssistant(t, t.TempDir(), &mockSource{})

	_, err := a.Query(context.Background(), "anything?")
	assert.ErrorIs(t, err, domain.ErrUninitializedIndex)
}

func TestAssistant_SourceErrorIsReported(t *testing.T) {
	srcErr := errors.New("documents directory missing")
	a := setupAssistant(t, t.TempDir(), &mockSource{err: srcErr})

	err := a.Initialize(context.Background())
	assert.ErrorIs(t, err, domain.ErrUninitializedIndex)
	assert.ErrorIs(t, err, srcErr)
}

func TestAssistant_SourceIgnoredWhenStoreExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, setupAssistant(t, dir, starWars()).Initialize(context.Background()))

	src := &mockSource{err: errors.New("documents directory missing")}
	a := setupAssistant(t, dir, src)
	answer, err := a.Query(context.Background(), "When did Star Wars premiere?")
	require.NoError(t, err)
	assert.Contains(t, answer, "1977")
	assert.Zero(t, src.calls)
}

func TestAssistant_MalformedQueryLoadsNothing(t *testing.T) {
	dir := t.TempDir()
	src := starWars()
	a := setupAssistant(t, dir, src)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := a.Query(context.Background(), q)
		assert.ErrorIs(t, err, domain.ErrMalformedQuery)
	}
	assert.Zero(t, src.calls)
	assert.NoFileExists(t, filepath.Join(dir, sqlite.FileName))
	assert.Nil(t, a.History())
}
