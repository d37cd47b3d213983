package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View names accepted by Run.
const (
	ViewInspectAssets = "inspect_assets"
	ViewStatsAssets   = "stats_assets"
)

// IsTUISupported reports whether a view can run in TUI mode.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// SupportedTUIViews lists the TUI views.
func SupportedTUIViews() []string {
	return []string{ViewInspectAssets, ViewStatsAssets}
}

// Run starts the TUI for viewType and blocks until the user quits.
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
	return model.View(), nil
}

func newModel(viewType string, data any) (tea.Model, error) {
	switch viewType {
	case ViewInspectAssets:
		return NewInspectModel(data), nil
	case ViewStatsAssets:
		return NewStatsModel(data), nil
	default:
		return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
}

type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return HelpStyle.Render(strings.Join(parts, " • "))
}
