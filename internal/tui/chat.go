package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dream-ai/hammond/internal/chat"
)

// Message is one entry in the transcript
type Message struct {
	Role    string
	Content string
	Sources []string
	IsError bool
}

// ChatModel is the bubbletea model for the chat screen
type ChatModel struct {
	ctx      context.Context
	svc      Service
	title    string
	input    textinput.Model
	viewport viewport.Model
	messages []Message
	status   string
	loading  bool
	confirm  bool
	ready    bool
}

// NewChatModel creates the chat screen
func NewChatModel(ctx context.Context, svc Service, title string) ChatModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	return ChatModel{
		ctx:      ctx,
		svc:      svc,
		title:    title,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready.",
	}
}

// answerMsg carries a finished answer
type answerMsg struct {
	answer chat.Answer
}

// errorMsg carries a failed question or reset
type errorMsg struct {
	error error
}

// resetMsg signals the session was reset
type resetMsg struct{}

func (m ChatModel) Init() tea.Cmd { return textinput.Blink }

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // title, status, input box, help
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case answerMsg:
		m.loading = false
		m.messages = append(m.messages, Message{
			Role:    "assistant",
			Content: Sanitize(msg.answer.Text),
			Sources: msg.answer.Sources,
		})
		m.status = "Ready."
		m.refresh()
		return m, nil

	case errorMsg:
		m.loading = false
		m.messages = append(m.messages, Message{Role: "assistant", Content: msg.error.Error(), IsError: true})
		m.status = "Request failed."
		m.refresh()
		return m, nil

	case resetMsg:
		m.loading = false
		m.messages = nil
		m.status = "Session reset. The index will be reloaded on the next question."
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.confirm {
			return m.confirmClear(msg), nil
		}
		switch msg.String() {
		case "esc":
			return m, tea.Quit
		case "ctrl+l":
			if !m.loading {
				m.confirm = true
				m.status = "Clear the conversation? (y/n)"
			}
			return m, nil
		case "ctrl+r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.status = "Resetting..."
			return m, m.reset
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.loading {
				return m, nil
			}
			m.input.Reset()
			m.messages = append(m.messages, Message{Role: "user", Content: q})
			m.loading = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// confirmClear handles the answer to the clear-history prompt
func (m ChatModel) confirmClear(msg tea.KeyMsg) ChatModel {
	m.confirm = false
	switch strings.ToLower(msg.String()) {
	case "y":
		m.svc.ClearHistory(true)
		m.messages = nil
		m.status = "Conversation cleared."
	default:
		m.svc.ClearHistory(false)
		m.status = "Kept the conversation."
	}
	m.refresh()
	return m
}

func (m ChatModel) ask(q string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.svc.Ask(m.ctx, q)
		if err != nil {
			return errorMsg{error: err}
		}
		return answerMsg{answer: answer}
	}
}

func (m ChatModel) reset() tea.Msg {
	if err := m.svc.Reset(); err != nil {
		return errorMsg{error: err}
	}
	return resetMsg{}
}

// refresh re-renders the transcript and scrolls to the latest message
func (m *ChatModel) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m ChatModel) renderMessages() string {
	if len(m.messages) == 0 {
		return helpStyle.Render("No messages yet.")
	}

	width := max(10, m.viewport.Width)
	body := lipgloss.NewStyle().Width(width)

	var lines []string
	for _, msg := range m.messages {
		switch {
		case msg.Role == "user":
			lines = append(lines, userStyle.Render("You:"), body.Render(msg.Content))
		case msg.IsError:
			lines = append(lines, errorStyle.Render("Error:"), errorStyle.Width(width).Render(msg.Content))
		default:
			lines = append(lines, assistantStyle.Render("Assistant:"), body.Render(msg.Content))
			if len(msg.Sources) > 0 {
				lines = append(lines, sourceStyle.Render(fmt.Sprintf("Sources: %s", strings.Join(msg.Sources, ", "))))
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m ChatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := statusStyle.Render(m.status)
	if m.confirm {
		status = promptStyle.Render(m.status)
	}
	help := helpStyle.Render("Enter: Send | Ctrl+L: Clear | Ctrl+R: Reset | PgUp/PgDn: Scroll | Esc: Quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		transcriptBoxStyle.Render(m.viewport.View()),
		inputBoxStyle.Render(m.input.View()),
		status,
		help,
	)
}
