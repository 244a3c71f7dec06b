package llm

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/dream-ai/hammond/internal/ollama"
)

// Ollama generates answers with a local Ollama chat model
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates a new Ollama generator
func NewOllama(client *api.Client, model string) *Ollama {
	return &Ollama{client: client, model: model}
}

// ModelName returns the chat model name
func (o *Ollama) ModelName() string { return o.model }

// Generate runs one non-streaming chat completion
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	msgs := req.Messages()
	messages := make([]api.Message, len(msgs))
	for i, m := range msgs {
		messages[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	options := map[string]any{
		"temperature": req.Options.Temperature,
	}
	if req.Options.MaxTokens > 0 {
		options["num_predict"] = req.Options.MaxTokens
	}

	stream := false
	var result api.ChatResponse
	err := o.client.Chat(ctx, &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, func(resp api.ChatResponse) error {
		result = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate with ollama: %w", ollama.Classify(err))
	}

	return result.Message.Content, nil
}
