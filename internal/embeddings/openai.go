package embeddings

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/dream-ai/hammond/internal/openaicompat"
)

// OpenAI generates embeddings with OpenAI or an Azure OpenAI deployment
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI embedder
func NewOpenAI(client *openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// ModelName returns the embedding model name
func (m *OpenAI) ModelName() string { return m.model }

// Embed generates one embedding per text in a single request
func (m *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := m.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", openaicompat.Classify(err))
	}

	// results carry their input index and are not guaranteed to be ordered
	embeddings := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) {
			idx = i
		}
		if idx >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range for %d texts", d.Index, len(texts))
		}
		embeddings[idx] = d.Embedding
	}
	for i, v := range embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
	}

	return embeddings, nil
}
