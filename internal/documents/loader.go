// Package documents loads a directory of source files into documents.
package documents

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/logging"
)

// Loader walks a directory and parses every supported file
type Loader struct {
	parsers map[string]Parser
	log     *logrus.Entry
}

// NewLoader creates a loader for PDF, EPUB, HTML, markdown and plain text
func NewLoader(log *logrus.Entry) *Loader {
	l := &Loader{
		parsers: make(map[string]Parser),
		log:     logging.OrDiscard(log),
	}
	l.Register(NewPDFParser(), ".pdf")
	l.Register(NewEPUBParser(), ".epub")
	l.Register(NewHTMLParser(), ".html", ".htm", ".xhtml")
	l.Register(NewMarkdownParser(), ".md", ".markdown")
	l.Register(NewTextParser(), ".txt", ".text")
	return l
}

// Register handles files with the given extensions using p
func (l *Loader) Register(p Parser, exts ...string) {
	for _, ext := range exts {
		l.parsers[strings.ToLower(ext)] = p
	}
}

// Documents returns the documents found under dir, walking it lazily and
// recursively. Unsupported or unreadable files are logged and skipped.
// PDF and EPUB files give one document per page.
func (l *Loader) Documents(ctx context.Context, dir string) (iter.Seq[domain.Document], error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	return func(yield func(domain.Document) bool) {
		var files, docs, skipped int

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				l.log.WithError(err).WithField("path", path).Warn("failed to read path")
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			files++
			parser, err := l.parserFor(path)
			if err != nil {
				skipped++
				l.log.WithError(err).WithField("path", path).Warn("skipping file")
				return nil
			}

			parsed, err := l.load(ctx, path, parser)
			if err != nil {
				skipped++
				l.log.WithError(err).WithField("path", path).Warn("failed to parse file")
				return nil
			}

			for _, doc := range parsed {
				docs++
				if !yield(doc) {
					return filepath.SkipAll
				}
			}
			return nil
		})
		if err != nil {
			l.log.WithError(err).Warn("document walk stopped")
		}

		l.log.WithFields(logrus.Fields{
			"files":     files,
			"documents": docs,
			"skipped":   skipped,
		}).Info("loaded documents")
	}, nil
}

// parserFor picks a parser by extension. Files without an extension are
// sniffed and read as plain text when their content is text.
func (l *Loader) parserFor(path string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if p, ok := l.parsers[ext]; ok {
		return p, nil
	}

	if ext == "" {
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to detect MIME type: %w", err)
		}
		for m := mtype; m != nil; m = m.Parent() {
			if m.Is("text/plain") {
				return l.parsers[".txt"], nil
			}
		}
		return nil, &domain.UnsupportedInputError{Path: path, Format: mtype.String()}
	}

	return nil, &domain.UnsupportedInputError{Path: path, Format: ext}
}

func (l *Loader) load(ctx context.Context, path string, parser Parser) ([]domain.Document, error) {
	hash, err := computeFileHash(path)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	pages, err := parser.Parse(ctx, path)
	if err != nil {
		return nil, err
	}

	md := map[string]string{
		domain.MetaSource:   path,
		domain.MetaFormat:   parser.Format(),
		domain.MetaChecksum: hash,
	}

	docs := make([]domain.Document, 0, len(pages))
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			Content:  page.Text,
			Metadata: pageMetadata(md, page),
		})
	}
	if len(docs) == 0 {
		l.log.WithField("path", path).Debug("file has no text")
	}
	return docs, nil
}

// computeFileHash computes SHA256 hash of a file
func computeFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
