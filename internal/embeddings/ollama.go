package embeddings

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/dream-ai/hammond/internal/ollama"
)

// DefaultOllamaModel is used when no embedding model is configured
const DefaultOllamaModel = "nomic-embed-text"

// Ollama generates embeddings with a local Ollama server
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates a new Ollama embedder
func NewOllama(client *api.Client, model string) *Ollama {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{client: client, model: model}
}

// ModelName returns the embedding model name
func (o *Ollama) ModelName() string { return o.model }

// Embed generates one embedding per text in a single request
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings from ollama: %w", ollama.Classify(err))
	}

	return resp.Embeddings, nil
}
