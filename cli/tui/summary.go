package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/justapithecus/sluice/cli/reader"
)

// SummaryModel shows one render: its summary, and for inspect views the
// persisted HTML in a scrollable viewport.
type SummaryModel struct {
	viewType string
	summary  *reader.RenderSummary
	html     string
	viewport viewport.Model
	ready    bool
	quitting bool
}

// NewSummaryModel accepts a *reader.RenderSummary or a
// *reader.InspectRenderResponse.
func NewSummaryModel(viewType string, data any) SummaryModel {
	m := SummaryModel{viewType: viewType}
	switch v := data.(type) {
	case *reader.RenderSummary:
		m.summary = v
	case *reader.InspectRenderResponse:
		m.summary = &v.Summary
		m.html = v.HTML
	}
	return m
}

// Init implements tea.Model.
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-lineCount(m.renderSummary())-4, 3)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.html)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.html == "" || !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}
	content := m.renderSummary()
	help := "Press q to quit"
	if m.html != "" && m.ready {
		content += "\n" + m.viewport.View()
		help = fmt.Sprintf("↑/↓ scroll • %3.f%% • q quit", m.viewport.ScrollPercent()*100)
	}
	return content + "\n" + HelpStyle.Render(help)
}

func (m SummaryModel) renderSummary() string {
	s := m.summary
	if s == nil {
		return fmt.Sprintf("Invalid data type for %s", m.viewType)
	}

	var b strings.Builder
	title := "Render"
	if m.viewType == ViewInspectRender {
		title = "Persisted Render"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Request ID", s.RequestID},
		{"Document", s.Document},
		{"Status", s.Status},
		{"Bytes", humanize.Bytes(uint64(max(s.BytesWritten, 0)))},
		{"Chunks", humanize.Comma(s.Chunks)},
		{"Client rendered", humanize.Comma(s.ClientRendered)},
		{"Errors", humanize.Comma(s.ReportedErrors)},
		{"Tasks", fmt.Sprintf("%d created, %d aborted", s.TasksCreated, s.TasksAborted)},
	}
	if s.Message != "" {
		rows = append(rows, [2]string{"Message", s.Message})
	}
	if s.Output != "" {
		rows = append(rows, [2]string{"Output", s.Output})
	}
	if s.Duration != "" {
		rows = append(rows, [2]string{"Duration", s.Duration})
	}
	if !s.CompletedAt.IsZero() {
		rows = append(rows, [2]string{"Completed", s.CompletedAt.Format("2006-01-02 15:04:05")})
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := ValueStyle.Render(row[1])
		if row[0] == "Status" {
			value = StatusStyle(s.Status).Render(row[1])
		}
		fmt.Fprintf(&b, "%s %s\n", label, value)
	}
	return BoxStyle.Render(b.String())
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}
