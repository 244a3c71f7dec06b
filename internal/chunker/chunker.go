// Package chunker splits documents into overlapping, boundary-aware text segments.
package chunker

import (
	"iter"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/logging"
)

// DefaultChunkSize is the default number of characters per segment.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters shared by consecutive segments.
const DefaultChunkOverlap = 200

// Chunker splits document content into segments of at most chunkSize runes.
type Chunker struct {
	chunkSize int
	overlap   int
	log       *logrus.Entry
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between segments in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithLogger sets the logger used for per-document counts.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Chunker) {
		c.log = log
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	c.log = logging.OrDiscard(c.log)

	return c
}

// ChunkSize returns the effective chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the effective overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk lazily splits each document into segments. Documents are pulled from
// docs one at a time and each is processed exactly once.
func (c *Chunker) Chunk(docs iter.Seq[domain.Document]) iter.Seq[domain.Segment] {
	return func(yield func(domain.Segment) bool) {
		if docs == nil {
			return
		}
		for doc := range docs {
			n := 0
			for seg := range c.split(doc) {
				if !yield(seg) {
					return
				}
				n++
			}
			c.log.WithFields(logrus.Fields{
				"source":   doc.Source(),
				"segments": n,
			}).Debug("document chunked")
		}
	}
}

// split yields the segments of a single document.
func (c *Chunker) split(doc domain.Document) iter.Seq[domain.Segment] {
	return func(yield func(domain.Segment) bool) {
		if strings.TrimSpace(doc.Content) == "" {
			return
		}

		text := []rune(doc.Content)
		start, position := 0, 0

		for {
			end := len(text)
			if end-start > c.chunkSize {
				end = c.breakPoint(text, start)
			}

			md := domain.CopyMetadata(doc.Metadata)
			md[domain.MetaPosition] = strconv.Itoa(position)
			seg := domain.Segment{
				Text:     string(text[start:end]),
				Metadata: md,
				Position: position,
				Start:    start,
				End:      end,
			}
			if !yield(seg) || end == len(text) {
				return
			}

			// end > start+overlap, so the next segment always moves forward
			start = end - c.overlap
			position++
		}
	}
}

// breakPoint picks the end of the segment starting at start. Candidates lie in
// (start+overlap, start+chunkSize]; a paragraph break is preferred over a
// sentence end, a sentence end over whitespace, and a hard cut is the fallback.
func (c *Chunker) breakPoint(text []rune, start int) int {
	limit := start + c.chunkSize
	floor := start + c.overlap

	for _, isBoundary := range []func([]rune, int) bool{paragraphEnd, sentenceEnd, spaceEnd} {
		for p := limit; p > floor; p-- {
			if isBoundary(text, p) {
				return p
			}
		}
	}
	return limit
}

// paragraphEnd reports whether text[:p] ends with a blank line.
func paragraphEnd(text []rune, p int) bool {
	return p >= 2 && text[p-1] == '\n' && text[p-2] == '\n'
}

// sentenceEnd reports whether text[:p] ends a sentence or a line.
func sentenceEnd(text []rune, p int) bool {
	switch text[p-1] {
	case '\n':
		return true
	case '.', '!', '?':
		return p < len(text) && unicode.IsSpace(text[p])
	}
	return false
}

func spaceEnd(text []rune, p int) bool {
	return unicode.IsSpace(text[p-1])
}
