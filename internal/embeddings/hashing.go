package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hashing is an offline bag-of-words embedder: every word is hashed into one
// of dim buckets and the counts are L2-normalised. Texts sharing words end up
// close under cosine distance.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing embedder with dim buckets
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

// ModelName returns "hashing"
func (h *Hashing) ModelName() string { return "hashing" }

// Embed hashes each text independently
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	v := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		f.Write([]byte(w))
		v[f.Sum32()%uint32(h.dim)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
