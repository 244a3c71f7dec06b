package domain

import (
	"errors"
	"fmt"
)

// Errors surfaced by the retrieval and conversation pipeline.
var (
	// ErrUnsupportedInput marks a file whose format cannot be ingested.
	// Ingestion skips such files and reports them; it is never fatal.
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrUninitializedIndex indicates there is no persisted store and no segments to build one.
	ErrUninitializedIndex = errors.New("index is uninitialized: no existing store and no segments to build one")

	// ErrIndexNotReady indicates the index was used before it was initialized.
	ErrIndexNotReady = errors.New("index is not ready")

	// ErrEmbeddingProvider indicates the embedding capability failed.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGeneration indicates the generation capability failed.
	ErrGeneration = errors.New("generation error")

	// ErrMalformedQuery indicates an empty or whitespace-only question.
	ErrMalformedQuery = errors.New("malformed query")
)

// UnsupportedInputError reports a file that was skipped during ingestion.
type UnsupportedInputError struct {
	Path   string
	Format string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported file type %q: %s", e.Format, e.Path)
}

// Is reports whether target is ErrUnsupportedInput.
func (e *UnsupportedInputError) Is(target error) bool {
	return target == ErrUnsupportedInput
}

// ProviderError is returned once an embedding or generation call has failed
// fatally or exhausted its retries. Kind is ErrEmbeddingProvider or ErrGeneration.
type ProviderError struct {
	Kind     error
	Op       string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%v: %s failed after %d attempt(s): %v", e.Kind, e.Op, e.Attempts, e.Err)
}

// Unwrap exposes both the error kind and the underlying provider cause.
func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewEmbeddingError wraps err as a fatal embedding provider error.
func NewEmbeddingError(op string, attempts int, err error) error {
	return &ProviderError{Kind: ErrEmbeddingProvider, Op: op, Attempts: attempts, Err: err}
}

// NewGenerationError wraps err as a fatal generation error.
func NewGenerationError(op string, attempts int, err error) error {
	return &ProviderError{Kind: ErrGeneration, Op: op, Attempts: attempts, Err: err}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err, or any error it wraps, was marked retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
