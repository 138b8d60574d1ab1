package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View types that support TUI mode.
const (
	ViewRender        = "render"
	ViewInspectRender = "inspect_render"
	ViewStatsRenders  = "stats_renders"
)

// keyMap defines key bindings shared by every view.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// Run starts the TUI for the given view type.
func Run(viewType string, data any) error {
	model, err := newModel(viewType, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// RenderStatic renders a view once without starting a program.
func RenderStatic(viewType string, data any) (string, error) {
	model, err := newModel(viewType, data)
	if err != nil {
		return "", err
	}
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return model.View(), nil
}

func newModel(viewType string, data any) (tea.Model, error) {
	switch viewType {
	case ViewRender, ViewInspectRender:
		return NewSummaryModel(viewType, data), nil
	case ViewStatsRenders:
		return NewStatsModel(data), nil
	default:
		return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// SupportedTUIViews returns the view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewRender, ViewInspectRender, ViewStatsRenders}
}
