// Package assistant is the session-facing API: it builds or loads the index on
// first use and answers questions through a chat engine.
package assistant

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/chat"
	"github.com/dream-ai/hammond/internal/chunker"
	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/index"
	"github.com/dream-ai/hammond/internal/llm"
	"github.com/dream-ai/hammond/internal/logging"
)

// Source provides the documents an index is built from
type Source interface {
	Documents(ctx context.Context, dir string) (iter.Seq[domain.Document], error)
}

// Option configures an Assistant
type Option func(*Assistant)

// WithChunker sets how documents are split before indexing
func WithChunker(c *chunker.Chunker) Option {
	return func(a *Assistant) {
		a.chunker = c
	}
}

// WithEngineOptions passes options to every chat engine the assistant creates
func WithEngineOptions(opts ...chat.Option) Option {
	return func(a *Assistant) {
		a.engineOpts = append(a.engineOpts, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(a *Assistant) {
		a.log = log
	}
}

// Assistant owns one index and one conversation
type Assistant struct {
	index      *index.Index
	gen        llm.Generator
	source     Source
	dir        string
	chunker    *chunker.Chunker
	engineOpts []chat.Option
	log        *logrus.Entry

	mu     sync.Mutex
	engine *chat.Engine
}

// New creates an assistant. Nothing is loaded until the first question.
func New(ix *index.Index, gen llm.Generator, source Source, dir string, opts ...Option) *Assistant {
	a := &Assistant{
		index:  ix,
		gen:    gen,
		source: source,
		dir:    dir,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logging.OrDiscard(a.log)
	if a.chunker == nil {
		a.chunker = chunker.New(chunker.WithLogger(a.log))
	}
	a.engineOpts = append(a.engineOpts, chat.WithLogger(a.log))
	return a
}

// Initialize loads the index, building it from the source documents if no
// store exists yet, and starts a new conversation
func (a *Assistant) Initialize(ctx context.Context) error {
	_, err := a.ensureEngine(ctx)
	return err
}

func (a *Assistant) ensureEngine(ctx context.Context) (*chat.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine != nil {
		return a.engine, nil
	}

	var loadErr error
	docs := func(yield func(domain.Document) bool) {
		seq, err := a.source.Documents(ctx, a.dir)
		if err != nil {
			loadErr = err
			return
		}
		seq(yield)
	}

	h, err := a.index.Initialize(ctx, a.chunker.Chunk(docs))
	if err != nil {
		if loadErr != nil {
			return nil, fmt.Errorf("%w: %w", err, loadErr)
		}
		return nil, err
	}

	engine, err := chat.NewEngine(h, a.gen, a.engineOpts...)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	a.log.WithField("records", h.Metadata().Records).Info("assistant ready")
	return engine, nil
}

// Query answers text within the current conversation
func (a *Assistant) Query(ctx context.Context, text string) (string, error) {
	answer, err := a.Ask(ctx, text)
	if err != nil {
		return "", err
	}
	return answer.Text, nil
}

// Ask answers text and reports the sources the answer drew on. A blank
// question is rejected before anything is loaded.
func (a *Assistant) Ask(ctx context.Context, text string) (chat.Answer, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Answer{}, domain.ErrMalformedQuery
	}

	engine, err := a.ensureEngine(ctx)
	if err != nil {
		return chat.Answer{}, err
	}
	return engine.Ask(ctx, text)
}

// ClearHistory forgets the conversation when confirm is true
func (a *Assistant) ClearHistory(confirm bool) {
	a.mu.Lock()
	engine := a.engine
	a.mu.Unlock()

	if engine != nil {
		engine.ClearHistory(confirm)
	}
}

// History returns the current conversation, oldest first
func (a *Assistant) History() []domain.ChatTurn {
	a.mu.Lock()
	engine := a.engine
	a.mu.Unlock()

	if engine == nil {
		return nil
	}
	return engine.History()
}

// Reset drops the conversation and the index handle. The next question
// initializes both again; the persisted store is kept.
func (a *Assistant) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.engine = nil
	if err := a.index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	a.log.Debug("assistant reset")
	return nil
}
