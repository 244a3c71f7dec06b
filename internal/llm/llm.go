// Package llm provides the generation capability used for answering and query reformulation.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/config"
	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/ollama"
	"github.com/dream-ai/hammond/internal/openaicompat"
	"github.com/dream-ai/hammond/internal/retry"
)

// Options tunes a single generation call
type Options struct {
	Temperature float64
	// MaxTokens limits the answer length; zero leaves it to the provider
	MaxTokens int
}

// Request is everything one generation call sees
type Request struct {
	System   []string
	Context  []string
	History  []domain.ChatTurn
	Question string
	Options  Options
}

// Generator produces text for a request
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	ModelName() string
}

// Message is a provider-neutral chat message
type Message struct {
	Role    string
	Content string
}

// Roles used in Messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Messages lays a request out as chat messages: system instructions, the
// retrieved context as one system message, the history, then the question
func (r Request) Messages() []Message {
	msgs := make([]Message, 0, len(r.System)+len(r.History)+2)
	for _, s := range r.System {
		msgs = append(msgs, Message{Role: RoleSystem, Content: s})
	}
	if len(r.Context) > 0 {
		msgs = append(msgs, Message{Role: RoleSystem, Content: "Context: " + strings.Join(r.Context, "\n\n")})
	}
	for _, turn := range r.History {
		role := RoleUser
		if turn.Role == domain.RoleAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: turn.Text})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: r.Question})
	return msgs
}

// New builds the configured generator, wrapped with timeout, retry and rate limiting.
// An Ollama generator with no configured chat model picks the best installed one.
func New(ctx context.Context, cfg *config.Config, log *logrus.Entry) (Generator, error) {
	var g Generator

	switch cfg.Provider {
	case config.ProviderOllama:
		client, err := ollama.NewClient(cfg.Ollama.BaseURL, cfg.Timeout())
		if err != nil {
			return nil, err
		}
		model, err := ollama.NewModelSelector(client).GetDefaultModel(ctx, cfg.Ollama.ChatModel)
		if err != nil {
			return nil, fmt.Errorf("failed to select chat model: %w", err)
		}
		g = NewOllama(client, model)
	case config.ProviderOpenAI, config.ProviderAzure:
		key, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		client := openaicompat.NewClient(openaicompat.Options{
			Azure:      cfg.Provider == config.ProviderAzure,
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     key,
			APIVersion: cfg.OpenAI.APIVersion,
			Timeout:    cfg.Timeout(),
		})
		g = NewOpenAI(client, cfg.OpenAI.ChatModel)
	default:
		return nil, fmt.Errorf("unknown generation provider: %q", cfg.Provider)
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Generation.MaxRetries
	policy.Timeout = cfg.Timeout()
	policy.Limiter = retry.NewLimiter(cfg.Generation.RequestsPerSecond)

	return WithRetry(g, policy, log), nil
}
