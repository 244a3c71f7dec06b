// Package embeddings provides the embedding capability: text in, fixed-dimension vectors out.
package embeddings

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/config"
	"github.com/dream-ai/hammond/internal/ollama"
	"github.com/dream-ai/hammond/internal/openaicompat"
	"github.com/dream-ai/hammond/internal/retry"
)

// Embedder turns texts into vectors, one per text, in input order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// ModelName identifies the model so a store can record what built it
	ModelName() string
}

// New builds the configured embedder, wrapped with timeout, retry and rate limiting.
// The offline hashing embedder is returned as is.
func New(cfg *config.Config, log *logrus.Entry) (Embedder, error) {
	var e Embedder

	switch provider := cfg.EmbeddingProvider(); provider {
	case config.EmbedHashing:
		return NewHashing(cfg.EmbedDim), nil
	case config.ProviderOllama:
		client, err := ollama.NewClient(cfg.Ollama.BaseURL, cfg.Timeout())
		if err != nil {
			return nil, err
		}
		e = NewOllama(client, cfg.Ollama.EmbedModel)
	case config.ProviderOpenAI, config.ProviderAzure:
		key, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		client := openaicompat.NewClient(openaicompat.Options{
			Azure:      provider == config.ProviderAzure,
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     key,
			APIVersion: cfg.OpenAI.APIVersion,
			Timeout:    cfg.Timeout(),
		})
		e = NewOpenAI(client, cfg.OpenAI.EmbedModel)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", provider)
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Generation.MaxRetries
	policy.Timeout = cfg.Timeout()
	policy.Limiter = retry.NewLimiter(cfg.Generation.RequestsPerSecond)

	return WithRetry(e, policy, log), nil
}
