package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/retry"
)

// errEmptyAnswer is returned when the provider answers with nothing but whitespace
var errEmptyAnswer = errors.New("provider returned an empty answer")

type retrying struct {
	inner  Generator
	policy retry.Policy
	log    *logrus.Entry
}

// WithRetry wraps g so every call honours the policy. Fatal failures, retry
// exhaustion and empty answers surface as domain.ErrGeneration.
func WithRetry(g Generator, policy retry.Policy, log *logrus.Entry) Generator {
	return &retrying{inner: g, policy: policy, log: logging.OrDiscard(log)}
}

func (r *retrying) ModelName() string { return r.inner.ModelName() }

func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	var answer string
	attempts, err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		text, err := r.inner.Generate(ctx, req)
		if err != nil {
			r.log.WithError(err).WithField("transient", domain.IsTransient(err)).Debug("generation attempt failed")
			return err
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", domain.NewGenerationError("generate", attempts, err)
	}

	if strings.TrimSpace(answer) == "" {
		return "", domain.NewGenerationError("generate", attempts, errEmptyAnswer)
	}
	return answer, nil
}
