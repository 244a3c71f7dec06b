// Package rag folds conversation history into retrieval and formats what was
// retrieved for the answering model.
package rag

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/dream-ai/hammond/internal/domain"
	"github.com/dream-ai/hammond/internal/logging"
)

// DefaultTopK is the number of passages retrieved per question
const DefaultTopK = 2

// Searcher is a ready embedding index
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.VectorRecord, error)
}

// ConversationalRetriever reformulates the latest question against the
// history, then searches the index with the standalone question
type ConversationalRetriever struct {
	reformulator *Reformulator
	log          *logrus.Entry
}

// NewConversationalRetriever creates a new conversational retriever
func NewConversationalRetriever(reformulator *Reformulator, log *logrus.Entry) *ConversationalRetriever {
	return &ConversationalRetriever{
		reformulator: reformulator,
		log:          logging.OrDiscard(log),
	}
}

// Retrieve finds up to k passages for question. Errors from reformulation
// and search are returned unchanged.
func (r *ConversationalRetriever) Retrieve(ctx context.Context, index Searcher, history []domain.ChatTurn, question string, k int) ([]domain.VectorRecord, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	standalone, err := r.reformulator.Reformulate(ctx, history, question)
	if err != nil {
		return nil, err
	}

	records, err := index.Search(ctx, standalone, k)
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"query":   standalone,
		"results": len(records),
	}).Debug("retrieved passages")
	return records, nil
}
