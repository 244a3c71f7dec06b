package embeddings

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/retry"
)

type retrying struct {
	inner  Embedder
	policy retry.Policy
	log    *logrus.Entry
}

// WithRetry wraps e so every call honours the policy. Failures that are fatal
// or outlive the retries surface as domain.ErrEmbeddingProvider.
func WithRetry(e Embedder, policy retry.Policy, log *logrus.Entry) Embedder {
	return &retrying{inner: e, policy: policy, log: logging.OrDiscard(log)}
}

func (r *retrying) ModelName() string { return r.inner.ModelName() }

func (r *retrying) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	attempts, err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		vecs, err := r.inner.Embed(ctx, texts)
		if err != nil {
			r.log.WithError(err).WithField("transient", domain.IsTransient(err)).Debug("embedding attempt failed")
			return err
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, domain.NewEmbeddingError("embed", attempts, err)
	}

	if len(out) != len(texts) {
		return nil, domain.NewEmbeddingError("embed", attempts,
			fmt.Errorf("provider returned %d vectors for %d texts", len(out), len(texts)))
	}
	return out, nil
}
