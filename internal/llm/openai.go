package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/dream-ai/hammond/internal/openaicompat"
)

// OpenAI generates answers with OpenAI or an Azure OpenAI deployment
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI generator
func NewOpenAI(client *openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// ModelName returns the chat model or Azure deployment name
func (o *OpenAI) ModelName() string { return o.model }

// Generate runs one chat completion
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	msgs := req.Messages()
	messages := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	temperature := float32(req.Options.Temperature)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   req.Options.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", openaicompat.Classify(err))
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
