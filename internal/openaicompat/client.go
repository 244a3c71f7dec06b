// Package openaicompat builds go-openai clients for OpenAI and Azure OpenAI
// and maps their errors onto the retry taxonomy.
package openaicompat

import (
	"errors"
	"net/http"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/dream-ai/hammond/internal/retry"
)

// Options configures NewClient
type Options struct {
	// Azure selects Azure OpenAI; BaseURL is then the resource endpoint
	Azure      bool
	BaseURL    string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// NewClient creates an OpenAI or Azure OpenAI client
func NewClient(opts Options) *openai.Client {
	var config openai.ClientConfig
	if opts.Azure {
		config = openai.DefaultAzureConfig(opts.APIKey, opts.BaseURL)
		if opts.APIVersion != "" {
			config.APIVersion = opts.APIVersion
		}
	} else {
		config = openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			config.BaseURL = opts.BaseURL
		}
	}
	config.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return openai.NewClientWithConfig(config)
}

// Classify marks retryable API failures as transient
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retry.ClassifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retry.ClassifyStatus(reqErr.HTTPStatusCode, err)
	}
	return retry.ClassifyNetwork(err)
}
