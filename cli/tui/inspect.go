package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/outpost/cli/reader"
)

// InspectModel lists assets with a scrollable cursor.
type InspectModel struct {
	data     *reader.InspectAssetsResponse
	cursor   int
	height   int
	quitting bool
}

// NewInspectModel creates an inspect model. data must be
// *reader.InspectAssetsResponse; anything else renders an error line.
func NewInspectModel(data any) InspectModel {
	resp, _ := data.(*reader.InspectAssetsResponse)
	return InspectModel{data: resp, height: 20}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title, header, help and borders take about ten lines.
		m.height = max(msg.Height-10, 1)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.data != nil && m.cursor < len(m.data.Assets)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for inspect_assets"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Assets"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", LabelStyle.Render("Asset root:"), ValueStyle.Render(m.data.AssetRoot)))

	if len(m.data.Assets) == 0 {
		b.WriteString(MutedStyle.Render("(no assets)"))
		return BoxStyle.Render(b.String()) + "\n" + helpLine(keys.Quit)
	}

	rows := reader.Rows(m.data.Assets)
	pathWidth := 4
	for _, r := range rows {
		pathWidth = max(pathWidth, lipgloss.Width(r.Path))
	}
	line := func(path, size, digest, mod string) string {
		return fmt.Sprintf("%-*s  %10s  %-12s  %s", pathWidth, path, size, digest, mod)
	}
	b.WriteString(HeaderStyle.Render(line("PATH", "SIZE", "DIGEST", "MODIFIED")))
	b.WriteString("\n")

	start := 0
	if m.cursor >= m.height {
		start = m.cursor - m.height + 1
	}
	end := min(start+m.height, len(rows))
	for i := start; i < end; i++ {
		r := rows[i]
		text := line(r.Path, reader.HumanBytes(r.Size), r.Digest, r.ModTime)
		if i == m.cursor {
			text = SuccessStyle.Bold(true).Render("> " + text)
		} else {
			text = "  " + text
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return BoxStyle.Render(b.String()) + "\n" + helpLine(keys.Up, keys.Down, keys.Quit)
}
