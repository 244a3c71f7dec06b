// Package ollama builds clients for a local Ollama server and maps its
// errors onto the retry taxonomy.
package ollama

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/dream-ai/hammond/internal/retry"
)

// DefaultBaseURL is where a local Ollama server listens
const DefaultBaseURL = "http://localhost:11434"

// NewClient creates a new Ollama API client
func NewClient(baseURL string, timeout time.Duration) (*api.Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{
		Timeout: timeout,
	}
	return api.NewClient(parsedURL, hc), nil
}

// Classify marks retryable Ollama failures as transient.
// 429 and 5xx responses and network failures are retryable, other statuses are not.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var se api.StatusError
	if errors.As(err, &se) {
		return retry.ClassifyStatus(se.StatusCode, err)
	}
	return retry.ClassifyNetwork(err)
}
