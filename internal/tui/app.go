// Package tui is the interactive chat front end.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dream-ai/hammond/internal/chat"
)

// Service is what the chat screen needs from the assistant
type Service interface {
	Ask(ctx context.Context, text string) (chat.Answer, error)
	ClearHistory(confirm bool)
	Reset() error
}

// Run shows the chat screen until the user quits or ctx is cancelled
func Run(ctx context.Context, svc Service, title string) error {
	p := tea.NewProgram(NewChatModel(ctx, svc, title), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run chat: %w", err)
	}
	return nil
}
