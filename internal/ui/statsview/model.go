package statsview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tech-tracker/internal/keys"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/stats"
	"github.com/nhle/tech-tracker/internal/theme"
)

// CloseMsg signals the parent to leave the statistics panel.
type CloseMsg struct{}

// Model is the statistics panel.
type Model struct {
	stats  stats.Stats
	bar    progress.Model
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates a statistics panel.
func New(k *keys.KeyMap, width, height int) Model {
	bar := progress.New(progress.WithDefaultGradient())
	m := Model{bar: bar, keys: k}
	m.SetSize(width, height)
	return m
}

// SetStats replaces the figures shown.
func (m *Model) SetStats(s stats.Stats) {
	m.stats = s
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Stats) {
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}
	return m, nil
}

// View renders the panel.
func (m Model) View() string {
	s := m.stats
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(22)

	row := func(name string, value any) string {
		return label.Render(name) + fmt.Sprint(value)
	}

	sections := []string{
		heading.Render("Progress"),
		m.bar.ViewAs(float64(s.Progress) / 100),
		row("Completed", fmt.Sprintf("%d of %d", s.Completed, s.Total)),
		row("In progress", s.InProgress),
		row("Not started", s.NotStarted),
		row("Overdue", s.Overdue),
		row("Hours (done/total)", fmt.Sprintf("%d / %d", s.CompletedEstimatedHours, s.TotalEstimatedHours)),
		row("Most popular", orDash(string(s.MostPopularCategory))),
		"",
		heading.Render("By category"),
		breakdown(model.Categories, s.ByCategory, label),
		"",
		heading.Render("By difficulty"),
		breakdown(model.Difficulties, s.ByDifficulty, label),
		"",
		heading.Render("By priority"),
		breakdown(model.Priorities, s.ByPriority, label),
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 20)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.bar.Width = min(max(width-12, 10), 60)
}

// breakdown lists the non-zero counts in enum order.
func breakdown[T ~string](order []T, counts map[T]int, label lipgloss.Style) string {
	var lines []string
	for _, v := range order {
		if n := counts[v]; n > 0 {
			lines = append(lines, label.Render(string(v))+fmt.Sprint(n))
		}
	}
	if len(lines) == 0 {
		return theme.HelpStyle.Render("nothing tracked")
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
