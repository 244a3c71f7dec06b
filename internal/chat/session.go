package chat

import (
	"slices"
	"sync"

	"github.com/dream-ai/hammond/internal/domain"
)

// Session is the ordered, append-only history of one conversation
type Session struct {
	mu    sync.RWMutex
	turns []domain.ChatTurn
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{}
}

// Exchange records a question and its answer as one unit
func (s *Session) Exchange(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, domain.UserTurn(question), domain.AssistantTurn(answer))
}

// Turns returns a copy of the history, oldest first
func (s *Session) Turns() []domain.ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.turns)
}

// Len returns the number of turns
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Clear empties the history
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}
