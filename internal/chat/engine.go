// Package chat holds a conversation: it retrieves passages for each question,
// answers from them and records the exchange.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/llm"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/rag"
)

// SystemPrompt restricts answers to the retrieved context
const SystemPrompt = "You are a helpful AI assistant. Use only the provided context to answer the user's question."

// Answer is a generated reply and the sources it drew on
type Answer struct {
	Text    string
	Sources []string
}

// Option configures an Engine
type Option func(*Engine)

// WithTopK sets how many passages are retrieved per question
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithMaxContextTokens caps the retrieved context handed to the model
func WithMaxContextTokens(n int) Option {
	return func(e *Engine) {
		e.context = rag.NewContextBuilder(n)
	}
}

// WithGenerationOptions sets temperature and answer length
func WithGenerationOptions(opts llm.Options) Option {
	return func(e *Engine) {
		e.genOpts = opts
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// Engine answers questions within one session. Queries are serialized.
type Engine struct {
	index     rag.Searcher
	gen       llm.Generator
	retriever *rag.ConversationalRetriever
	context   *rag.ContextBuilder
	session   *Session
	topK      int
	genOpts   llm.Options
	log       *logrus.Entry

	mu sync.Mutex
}

// NewEngine creates an engine with an empty session over a ready index
func NewEngine(index rag.Searcher, gen llm.Generator, opts ...Option) (*Engine, error) {
	if index == nil {
		return nil, domain.ErrIndexNotReady
	}

	e := &Engine{
		index:   index,
		gen:     gen,
		context: rag.NewContextBuilder(rag.DefaultMaxContextTokens),
		session: NewSession(),
		topK:    rag.DefaultTopK,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrDiscard(e.log)
	e.retriever = rag.NewConversationalRetriever(rag.NewReformulator(gen, e.log), e.log)
	return e, nil
}

// Query answers text and returns only the answer text
func (e *Engine) Query(ctx context.Context, text string) (string, error) {
	a, err := e.Ask(ctx, text)
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

// Ask answers text from retrieved passages and records the exchange.
// On failure the session is left as it was.
func (e *Engine) Ask(ctx context.Context, text string) (Answer, error) {
	if strings.TrimSpace(text) == "" {
		return Answer{}, domain.ErrMalformedQuery
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.session.Turns()

	records, err := e.retriever.Retrieve(ctx, e.index, history, text, e.topK)
	if err != nil {
		return Answer{}, err
	}

	answer, err := e.gen.Generate(ctx, llm.Request{
		System:   []string{SystemPrompt},
		Context:  e.context.Passages(records),
		History:  history,
		Question: text,
		Options:  e.genOpts,
	})
	if err != nil {
		return Answer{}, err
	}

	e.session.Exchange(text, answer)

	e.log.WithFields(logrus.Fields{
		"passages": len(records),
		"turns":    e.session.Len(),
	}).Debug("question answered")

	return Answer{Text: answer, Sources: rag.Sources(records)}, nil
}

// ClearHistory empties the session when confirm is true; otherwise it does nothing
func (e *Engine) ClearHistory(confirm bool) {
	if !confirm {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Clear()
	e.log.Info("chat history cleared")
}

// History returns a copy of the session's turns
func (e *Engine) History() []domain.ChatTurn {
	return e.session.Turns()
}
