package techlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/theme"
)

// maxTagBadges caps how many tags a list row shows.
const maxTagBadges = 2

// TechItem wraps a model.Technology so it can be used in a bubbles/list.
type TechItem struct {
	Tech model.Technology
	// Now decides overdue marking; it is captured when the list loads.
	Now time.Time
}

// FilterValue returns the string used for fuzzy filtering.
func (i TechItem) FilterValue() string { return i.Tech.Title }

// Title returns the record title for the list.
func (i TechItem) Title() string { return i.Tech.Title }

// Description returns a short summary line for the list.
func (i TechItem) Description() string {
	parts := []string{
		string(i.Tech.Category),
		string(i.Tech.Difficulty),
		i.Tech.Status.Label(),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering list items.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TechItem)
	if !ok {
		return
	}

	line := renderLine(ti)
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// renderLine builds the unstyled-frame content of one row.
func renderLine(ti TechItem) string {
	t := ti.Tech

	statusBadge := theme.StatusStyle(t.Status).Render(t.Status.Label())
	categoryBadge := theme.CategoryStyle(t.Category).Render(string(t.Category))
	priBadge := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	deadline := ""
	if t.Deadline != nil {
		deadline = theme.DeadlineStyle.Render(" " + t.Deadline.Format("Jan 02"))
	}

	overdue := ""
	if t.IsOverdue(ti.Now) {
		overdue = theme.OverdueStyle.Render(" OVERDUE")
	}

	tags := ""
	if len(t.Tags) > 0 {
		display := t.Tags
		if len(display) > maxTagBadges {
			display = append(append([]string(nil), display[:maxTagBadges]...), "…")
		}
		tags = lipgloss.NewStyle().
			Foreground(theme.ColorMagenta).
			Render(" #" + strings.Join(display, " #"))
	}

	line := fmt.Sprintf(
		"%s %s %s %s %s%s%s%s",
		theme.StatusIcon(t.Status), statusBadge, categoryBadge, priBadge, t.Title,
		tags, deadline, overdue,
	)

	if t.IsCompleted() {
		line = theme.DimmedStyle.Render(line)
	}
	return line
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityCritical:
		return "P1"
	case model.PriorityHigh:
		return "P2"
	case model.PriorityMedium:
		return "P3"
	case model.PriorityLow:
		return "P4"
	default:
		return "P?"
	}
}
