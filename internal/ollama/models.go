package ollama

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ollama/ollama/api"
)

// priorityModels lists chat model families in order of preference
var priorityModels = []string{
	"llama3.2",
	"llama3.1",
	"qwen2.5",
	"mistral",
	"llama3",
	"llama2",
}

// ModelSelector picks a chat model from the models installed on the server
type ModelSelector struct {
	client *api.Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *api.Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists the installed chat models; embedding-only models are left out
func (ms *ModelSelector) ListModels(ctx context.Context) ([]api.ListModelResponse, error) {
	resp, err := ms.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ollama models: %w", Classify(err))
	}

	models := make([]api.ListModelResponse, 0, len(resp.Models))
	for _, m := range resp.Models {
		if strings.Contains(strings.ToLower(m.Name), "embed") {
			continue
		}
		models = append(models, m)
	}
	return models, nil
}

// SelectBestModel selects the best installed chat model
func (ms *ModelSelector) SelectBestModel(ctx context.Context) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}

	if len(models) == 0 {
		return "", fmt.Errorf("no chat models available")
	}

	for _, priority := range priorityModels {
		for _, model := range models {
			if strings.Contains(strings.ToLower(model.Name), priority) {
				return model.Name, nil
			}
		}
	}

	// No priority model found, the largest one is usually best
	sort.Slice(models, func(i, j int) bool {
		return models[i].Size > models[j].Size
	})

	return models[0].Name, nil
}

// GetDefaultModel returns preferred if it is installed, otherwise the best available model
func (ms *ModelSelector) GetDefaultModel(ctx context.Context, preferred string) (string, error) {
	if preferred != "" {
		models, err := ms.ListModels(ctx)
		if err != nil {
			return "", err
		}

		for _, model := range models {
			if model.Name == preferred || model.Model == preferred {
				return preferred, nil
			}
		}
	}

	return ms.SelectBestModel(ctx)
}
