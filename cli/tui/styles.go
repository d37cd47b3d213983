// Package tui provides Bubble Tea views for the outpost CLI.
//
// TUI mode is opt-in (--tui), read-only, and renders the same payloads as
// the non-TUI output.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor   = lipgloss.Color("#0EA5E9") // Sky
	successColor   = lipgloss.Color("#10B981") // Green
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#F59E0B") // Amber
)

// Styles shared by the views.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	ValueStyle = lipgloss.NewStyle()

	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Align(lipgloss.Center)
)

// StateStyle returns the style for an acknowledgement state.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "FULLY_APPLIED":
		return SuccessStyle
	case "NOT_APPLIED":
		return ErrorStyle
	case "NO_OPERATION":
		return MutedStyle
	default:
		return ValueStyle
	}
}
