package documents

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-ai/hammond/internal/domain"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func setupCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("Star Wars premiered in 1977."))
	writeFile(t, filepath.Join(dir, "b.md"), []byte("# Sequels\n\nThe Empire Strikes Back, 1980."))
	writeFile(t, filepath.Join(dir, "c.html"), []byte("<html><body><h1>Jedi</h1><p>Return of the <b>Jedi</b>, 1983.</p></body></html>"))
	writeFile(t, filepath.Join(dir, "nested", "d.txt"), []byte("Nested notes."))
	writeFile(t, filepath.Join(dir, "README"), []byte("Plain text without an extension.\n"))
	writeFile(t, filepath.Join(dir, "poster.png"), pngHeader)
	writeFile(t, filepath.Join(dir, "blob"), pngHeader)
	writeFile(t, filepath.Join(dir, "empty.txt"), []byte("   \n"))
	writeFile(t, filepath.Join(dir, ".hidden.txt"), []byte("hidden"))
	writeFile(t, filepath.Join(dir, ".git", "HEAD.txt"), []byte("ref"))
	return dir
}

func collect(t *testing.T, l *Loader, dir string) map[string]domain.Document {
	t.Helper()
	seq, err := l.Documents(context.Background(), dir)
	require.NoError(t, err)

	docs := make(map[string]domain.Document)
	for doc := range seq {
		rel, err := filepath.Rel(dir, doc.Source())
		require.NoError(t, err)
		docs[rel] = doc
	}
	return docs
}

func TestLoader_Documents(t *testing.T) {
	dir := setupCorpus(t)
	logger, hook := test.NewNullLogger()

	docs := collect(t, NewLoader(logrus.NewEntry(logger)), dir)

	assert.ElementsMatch(t,
		[]string{"a.txt", "b.md", "c.html", filepath.Join("nested", "d.txt"), "README"},
		keys(docs))

	a := docs["a.txt"]
	assert.Equal(t, "Star Wars premiered in 1977.", a.Content)
	assert.Equal(t, FormatText, a.Metadata[domain.MetaFormat])
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(a.Content))), a.Metadata[domain.MetaChecksum])
	assert.NotContains(t, a.Metadata, domain.MetaPage)

	assert.Equal(t, FormatMarkdown, docs["b.md"].Metadata[domain.MetaFormat])
	assert.Equal(t, FormatText, docs["README"].Metadata[domain.MetaFormat])

	html := docs["c.html"]
	assert.Equal(t, FormatHTML, html.Metadata[domain.MetaFormat])
	assert.Contains(t, html.Content, "Jedi")
	assert.Contains(t, html.Content, "1983")
	assert.NotContains(t, html.Content, "<p>")

	var unsupported []string
	for _, entry := range hook.AllEntries() {
		if entry.Level != logrus.WarnLevel {
			continue
		}
		err, _ := entry.Data[logrus.ErrorKey].(error)
		var uerr *domain.UnsupportedInputError
		if errors.As(err, &uerr) {
			assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
			unsupported = append(unsupported, filepath.Base(uerr.Path))
		}
	}
	assert.ElementsMatch(t, []string{"poster.png", "blob"}, unsupported)
}

func TestLoader_StopsEarly(t *testing.T) {
	dir := setupCorpus(t)
	seq, err := NewLoader(nil).Documents(context.Background(), dir)
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestLoader_CancelledContext(t *testing.T) {
	dir := setupCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seq, err := NewLoader(nil).Documents(ctx, dir)
	require.NoError(t, err)
	for range seq {
		t.Fatal("no documents expected after cancellation")
	}
}

func TestLoader_BrokenPDFIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.pdf"), []byte("not really a pdf"))
	writeFile(t, filepath.Join(dir, "ok.txt"), []byte("fine"))

	docs := collect(t, NewLoader(nil), dir)
	assert.Equal(t, []string{"ok.txt"}, keys(docs))
}

func TestLoader_BadDirectory(t *testing.T) {
	_, err := NewLoader(nil).Documents(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, []byte("x"))
	_, err = NewLoader(nil).Documents(context.Background(), file)
	assert.Error(t, err)
}

func TestLoader_Register(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.rst"), []byte("reStructuredText"))

	l := NewLoader(nil)
	assert.Empty(t, collect(t, l, dir))

	l.Register(NewTextParser(), ".RST")
	docs := collect(t, l, dir)
	assert.Equal(t, "reStructuredText", docs["notes.rst"].Content)
}

func TestPageMetadata(t *testing.T) {
	md := map[string]string{domain.MetaSource: "book.pdf"}

	out := pageMetadata(md, Page{Number: 3, Text: "x"})
	assert.Equal(t, "3", out[domain.MetaPage])
	assert.Equal(t, "book.pdf", out[domain.MetaSource])
	assert.NotContains(t, md, domain.MetaPage)

	assert.NotContains(t, pageMetadata(md, Page{Text: "x"}), domain.MetaPage)
}

func keys(m map[string]domain.Document) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
