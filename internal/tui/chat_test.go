package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-ai/hammond/internal/chat"
	"github.com/dream-ai/hammond/internal/domain"
)

// mockService implements Service for testing
type mockService struct {
	answer   chat.Answer
	err      error
	resetErr error
	asked    []string
	clears   []bool
	resets   int
}

func (m *mockService) Ask(_ context.Context, text string) (chat.Answer, error) {
	m.asked = append(m.asked, text)
	return m.answer, m.err
}

func (m *mockService) ClearHistory(confirm bool) { m.clears = append(m.clears, confirm) }

func (m *mockService) Reset() error {
	m.resets++
	return m.resetErr
}

func newModel(svc Service) ChatModel {
	m := NewChatModel(context.Background(), svc, "hammond")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(ChatModel)
}

func update(t *testing.T, m ChatModel, msg tea.Msg) (ChatModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(ChatModel)
	require.True(t, ok)
	return model, cmd
}

func send(t *testing.T, m ChatModel, text string) ChatModel {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.loading)
	m, _ = update(t, m, cmd())
	return m
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestChatModel_Answer(t *testing.T) {
	svc := &mockService{answer: chat.Answer{Text: "<p>It premiered in <b>1977</b>.</p>", Sources: []string{"films.txt"}}}
	m := send(t, newModel(svc), "  When did Star Wars premiere?  ")

	assert.Equal(t, []string{"When did Star Wars premiere?"}, svc.asked)
	assert.False(t, m.loading)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.messages, 2)
	assert.Equal(t, "user", m.messages[0].Role)

	reply := m.messages[1]
	assert.False(t, reply.IsError)
	assert.Contains(t, reply.Content, "1977")
	assert.NotContains(t, reply.Content, "<p>")
	assert.Equal(t, []string{"films.txt"}, reply.Sources)
	assert.Contains(t, m.View(), "hammond")
}

func TestChatModel_ErrorIsDistinctFromAnswer(t *testing.T) {
	svc := &mockService{err: domain.NewGenerationError("generate", 3, errors.New("503 service unavailable"))}
	m := send(t, newModel(svc), "When did Star Wars premiere?")

	require.Len(t, m.messages, 2)
	assert.True(t, m.messages[1].IsError)
	assert.Contains(t, m.messages[1].Content, "generation error")
	assert.Equal(t, "Request failed.", m.status)
}

func TestChatModel_EmptyInputIgnored(t *testing.T) {
	svc := &mockService{}
	m := newModel(svc)
	m.input.SetValue("   ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, m.messages)
	assert.Empty(t, svc.asked)
}

func TestChatModel_ClearNeedsConfirmation(t *testing.T) {
	svc := &mockService{answer: chat.Answer{Text: "1977"}}
	m := send(t, newModel(svc), "When?")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.True(t, m.confirm)

	m, _ = update(t, m, key('n'))
	assert.False(t, m.confirm)
	assert.Len(t, m.messages, 2)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	m, _ = update(t, m, key('y'))
	assert.Empty(t, m.messages)
	assert.Equal(t, []bool{false, true}, svc.clears)
}

func TestChatModel_Reset(t *testing.T) {
	svc := &mockService{answer: chat.Answer{Text: "1977"}}
	m := send(t, newModel(svc), "When?")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, 1, svc.resets)
	assert.Empty(t, m.messages)
	assert.False(t, m.loading)

	svc.resetErr = errors.New("close failed")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, _ = update(t, m, cmd())
	require.Len(t, m.messages, 1)
	assert.True(t, m.messages[0].IsError)
}

func TestChatModel_Quit(t *testing.T) {
	_, cmd := update(t, newModel(&mockService{}), tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestChatModel_ViewBeforeSize(t *testing.T) {
	m := NewChatModel(context.Background(), &mockService{}, "hammond")
	assert.Equal(t, "Loading...", m.View())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains string
	}{
		{"plain text untouched", "  Plain answer with 3 < 4.  ", "Plain answer with 3 < 4."},
		{"html converted", "<div>Star Wars premiered in <em>1977</em>.</div>", "1977"},
		{"line breaks", "First<br>Second", "Second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			assert.Contains(t, got, tt.contains)
			assert.NotRegexp(t, tagRe, got)
		})
	}
	assert.Equal(t, "Plain answer.", Sanitize(" Plain answer. "))
}
