package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
