package rag

import (
	"fmt"
	"strings"

	"github.com/dream-ai/hammond/internal/domain"
)

// DefaultMaxContextTokens bounds the retrieved context handed to the model
const DefaultMaxContextTokens = 2000

const truncatedMarker = "[Context truncated...]"

// ContextBuilder formats retrieved records as numbered excerpts
type ContextBuilder struct {
	maxTokens int
}

// NewContextBuilder creates a new context builder
func NewContextBuilder(maxTokens int) *ContextBuilder {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	return &ContextBuilder{
		maxTokens: maxTokens,
	}
}

// Passages returns one excerpt per record, most relevant first. The total
// length is capped at roughly maxTokens (~4 characters per token); the
// excerpt that crosses the cap is cut and marked.
func (cb *ContextBuilder) Passages(records []domain.VectorRecord) []string {
	budget := cb.maxTokens * 4
	passages := make([]string, 0, len(records))

	for i, rec := range records {
		if budget <= 0 {
			break
		}
		p := fmt.Sprintf("### Excerpt %d (%s)\n%s", i+1, describe(rec), rec.Text)

		r := []rune(p)
		if len(r) > budget {
			passages = append(passages, string(r[:budget])+"\n\n"+truncatedMarker)
			break
		}
		budget -= len(r)
		passages = append(passages, p)
	}
	return passages
}

// describe names where a record came from
func describe(rec domain.VectorRecord) string {
	var parts []string
	if src := rec.Source(); src != "" {
		parts = append(parts, "source: "+src)
	}
	if page := rec.Metadata[domain.MetaPage]; page != "" {
		parts = append(parts, "page "+page)
	}
	if len(parts) == 0 {
		return "unknown source"
	}
	return strings.Join(parts, ", ")
}

// Sources lists the distinct sources of records in order of first appearance
func Sources(records []domain.VectorRecord) []string {
	seen := make(map[string]bool, len(records))
	var out []string
	for _, rec := range records {
		src := rec.Source()
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
