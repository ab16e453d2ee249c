package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tech-tracker/internal/keys"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Action names a record operation requested from the detail view.
type Action string

const (
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionAdvance Action = "advance"
	ActionNotes   Action = "notes"
)

// ActionMsg signals the parent to execute an action on the shown record.
type ActionMsg struct {
	Action Action
	ID     model.ID
}

// LoadedMsg carries the record to show and its similar records.
type LoadedMsg struct {
	Tech    *model.Technology
	Similar []model.Technology
	Now     time.Time
}

// Model is the record detail view component.
type Model struct {
	tech     *model.Technology
	similar  []model.Technology
	now      time.Time
	viewport viewport.Model
	style    string
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model. style is a glamour style name, or
// "auto" to follow the terminal background.
func New(style string, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		style:    style,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.SetTech(msg.Tech, msg.Similar, msg.Now)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Edit):
			return m, m.action(ActionEdit)
		case key.Matches(msg, m.keys.Delete):
			return m, m.action(ActionDelete)
		case key.Matches(msg, m.keys.Advance):
			return m, m.action(ActionAdvance)
		case key.Matches(msg, m.keys.Notes):
			return m, m.action(ActionNotes)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(a Action) tea.Cmd {
	if m.tech == nil {
		return nil
	}
	id := m.tech.ID
	return func() tea.Msg { return ActionMsg{Action: a, ID: id} }
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return placeholder.Render("Loading...")
	}
	if m.tech == nil {
		return placeholder.Render("No technology selected")
	}
	return m.viewport.View()
}

// SetTech updates the record being displayed and re-renders the content.
func (m *Model) SetTech(t *model.Technology, similar []model.Technology, now time.Time) {
	m.tech = t
	m.similar = similar
	m.now = now
	m.loading = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Current returns the shown record id, or "" when none.
func (m Model) Current() model.ID {
	if m.tech == nil {
		return ""
	}
	return m.tech.ID
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.tech != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.tech == nil {
		return ""
	}
	t := m.tech

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	badges := lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.StatusStyle(t.Status).Render(t.Status.Label()), "  ",
		theme.CategoryStyle(t.Category).Render(string(t.Category)), "  ",
		theme.PriorityStyle(t.Priority).Render(string(t.Priority)),
	)
	if t.IsOverdue(m.now) {
		badges += theme.OverdueStyle.Render("  OVERDUE")
	}

	body := Markdown(*t, m.similar)
	if rendered, err := m.render(body); err == nil {
		body = rendered
	}

	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(t.Title), badges, body)
}

func (m Model) render(md string) (string, error) {
	wrap := min(max(m.width-4, 20), 100)
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wrap)}
	switch m.style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle(m.style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// Markdown renders the record body as a markdown document.
func Markdown(t model.Technology, similar []model.Technology) string {
	var b strings.Builder

	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Difficulty | %s |\n", t.Difficulty)
	fmt.Fprintf(&b, "| Estimated hours | %d |\n", t.EstimatedHours)
	if t.Deadline != nil {
		fmt.Fprintf(&b, "| Deadline | %s |\n", t.Deadline.Format(model.DateLayout))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "| Tags | %s |\n", strings.Join(t.Tags, ", "))
	}
	fmt.Fprintf(&b, "| Created | %s |\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "| Updated | %s |\n", t.UpdatedAt.Local().Format("2006-01-02 15:04"))

	b.WriteString("\n## Description\n\n")
	b.WriteString(orPlaceholder(t.Description, "_No description_"))

	b.WriteString("\n\n## Notes\n\n")
	b.WriteString(orPlaceholder(t.Notes, "_No notes yet. Press m to add some._"))
	b.WriteString("\n")

	if len(similar) > 0 {
		b.WriteString("\n## Similar\n\n")
		for _, s := range similar {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", s.Title, s.Category, s.Difficulty)
		}
	}
	return b.String()
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
