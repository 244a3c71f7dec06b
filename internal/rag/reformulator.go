package rag

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/llm"
	"github.com/dream-ai/hammond/internal/logging"
)

// ContextualizePrompt instructs the model to rewrite, never answer
const ContextualizePrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, " +
	"just reformulate it if needed and otherwise return it as is."

// labels models sometimes put in front of the rewritten question
var labels = []string{"standalone question:", "reformulated question:", "question:"}

// Reformulator turns a follow-up question into one that stands without the history
type Reformulator struct {
	gen llm.Generator
	log *logrus.Entry
}

// NewReformulator creates a reformulator backed by gen
func NewReformulator(gen llm.Generator, log *logrus.Entry) *Reformulator {
	return &Reformulator{gen: gen, log: logging.OrDiscard(log)}
}

// Reformulate returns a standalone version of question. With an empty history
// the question is returned unchanged and the model is not called. If the model
// returns nothing usable, or turns a question into a statement, the original
// question is used.
func (r *Reformulator) Reformulate(ctx context.Context, history []domain.ChatTurn, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", domain.ErrMalformedQuery
	}
	if len(history) == 0 {
		return question, nil
	}

	out, err := r.gen.Generate(ctx, llm.Request{
		System:   []string{ContextualizePrompt},
		History:  history,
		Question: question,
	})
	if err != nil {
		return "", err
	}

	standalone := clean(out)
	if standalone == "" || (strings.Contains(question, "?") && !strings.Contains(standalone, "?")) {
		r.log.WithField("output", out).Warn("reformulation unusable, keeping original question")
		return question, nil
	}

	r.log.WithFields(logrus.Fields{
		"question":   question,
		"standalone": standalone,
	}).Debug("question reformulated")
	return standalone, nil
}

// clean strips whitespace, a leading label and surrounding quotes
func clean(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, l := range labels {
		if strings.HasPrefix(lower, l) {
			s = strings.TrimSpace(s[len(l):])
			break
		}
	}
	for _, q := range []string{`"`, "'", "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
