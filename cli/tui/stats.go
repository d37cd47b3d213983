package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/outpost/cli/reader"
)

// StatsModel shows asset root totals.
type StatsModel struct {
	data     *reader.AssetStats
	quitting bool
}

// NewStatsModel creates a stats model from *reader.AssetStats.
func NewStatsModel(data any) StatsModel {
	stats, _ := data.(*reader.AssetStats)
	return StatsModel{data: stats}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for stats_assets"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Asset Statistics"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Asset root:"), ValueStyle.Render(m.data.AssetRoot)))
	last := "never"
	if m.data.LastUpdated != nil {
		last = m.data.LastUpdated.Format("2006-01-02 15:04:05")
	}
	b.WriteString(fmt.Sprintf("%s %s\n\n", LabelStyle.Render("Last updated:"), ValueStyle.Render(last)))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Files", fmt.Sprintf("%d", m.data.Files)),
		statBox("Directories", fmt.Sprintf("%d", m.data.Directories)),
		statBox("Size", reader.HumanBytes(m.data.TotalBytes)),
	))

	return b.String() + "\n" + helpLine(keys.Quit)
}

func statBox(label, value string) string {
	return StatBoxStyle.Render(StatValueStyle.Render(value) + "\n" + MutedStyle.Render(label))
}
