package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/justapithecus/sluice/cli/reader"
)

// StatsModel shows aggregate render outcomes.
type StatsModel struct {
	data     *reader.RenderStats
	width    int
	quitting bool
}

// NewStatsModel accepts a *reader.RenderStats.
func NewStatsModel(data any) StatsModel {
	stats, _ := data.(*reader.RenderStats)
	return StatsModel{data: stats}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for " + ViewStatsRenders
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Render Statistics"))
	b.WriteString("\n\n")

	boxes := []string{
		renderStatBox("Total", humanize.Comma(int64(m.data.Total)), accentColor),
		renderStatBox("Succeeded", humanize.Comma(int64(m.data.Succeeded)), OutcomeColor("success")),
		renderStatBox("Aborted", humanize.Comma(int64(m.data.Aborted)), OutcomeColor("aborted")),
		renderStatBox("Failed", humanize.Comma(int64(m.data.Failed)), OutcomeColor("render_error")),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Bytes written:"),
		ValueStyle.Render(humanize.Bytes(uint64(max(m.data.BytesWritten, 0)))))
	fmt.Fprintf(&b, "%s %s", LabelStyle.Render("Client rendered:"),
		ValueStyle.Render(humanize.Comma(m.data.ClientRendered)))

	return b.String() + "\n" + HelpStyle.Render("Press q to quit")
}

func renderStatBox(label, value string, color lipgloss.TerminalColor) string {
	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}
