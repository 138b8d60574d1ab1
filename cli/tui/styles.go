// Package tui provides Bubble Tea views for the sluice CLI.
//
// TUI mode is opt-in (--tui), read-only, and renders the same payloads
// as the json/table/yaml output.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Each color has a light and dark terminal variant.
var (
	accentColor = lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#38BDF8"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	textColor   = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
)

// outcomeColors keys colors by render outcome status.
var outcomeColors = map[string]lipgloss.AdaptiveColor{
	"success":      {Light: "#047857", Dark: "#34D399"},
	"pending":      {Light: "#B45309", Dark: "#FBBF24"},
	"aborted":      {Light: "#B45309", Dark: "#FBBF24"},
	"render_error": {Light: "#B91C1C", Dark: "#F87171"},
}

// OutcomeColor returns the color of status, or the text color for an
// unknown status.
func OutcomeColor(status string) lipgloss.TerminalColor {
	if c, ok := outcomeColors[status]; ok {
		return c
	}
	return textColor
}

// StatusStyle returns the style for a render outcome status.
func StatusStyle(status string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(OutcomeColor(status))
}

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(18)
	ValueStyle = lipgloss.NewStyle().Foreground(textColor)
	HelpStyle  = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// StatBoxStyle frames one counter; callers set the border color.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Width(18).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().Foreground(mutedColor).Align(lipgloss.Center)
	StatValueStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
)
