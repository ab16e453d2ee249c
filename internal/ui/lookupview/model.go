package lookupview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/keys"
	"github.com/nhle/tech-tracker/internal/lookup"
	"github.com/nhle/tech-tracker/internal/theme"
)

// searchTimeout bounds one remote search.
const searchTimeout = 15 * time.Second

// CloseMsg signals the parent to leave the lookup panel.
type CloseMsg struct{}

// PickedMsg carries the candidate chosen for tracking.
type PickedMsg struct {
	Candidate lookup.Candidate
}

// ResultsMsg carries the outcome of a search.
type ResultsMsg struct {
	Query      string
	Candidates []lookup.Candidate
	// Fallback is set when the built-in catalog stands in for the remote
	// search.
	Fallback bool
}

// Model is the technology lookup panel.
type Model struct {
	searcher  lookup.Searcher
	limit     int
	logger    *zap.Logger
	input     textinput.Model
	spinner   spinner.Model
	keys      *keys.KeyMap
	results   []lookup.Candidate
	fallback  bool
	cursor    int
	searching bool
	width     int
	height    int
}

// New creates a lookup panel. A nil searcher serves only the built-in
// catalog.
func New(s lookup.Searcher, limit int, logger *zap.Logger, k *keys.KeyMap, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "search repositories, e.g. react"
	ti.Prompt = "? "
	ti.Width = width - 6

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		searcher: s,
		limit:    limit,
		logger:   logger,
		input:    ti,
		spinner:  sp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Focus resets the panel and gives the query input focus.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	m.results = nil
	m.cursor = 0
	m.searching = false
	return m.input.Focus()
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultsMsg:
		m.searching = false
		m.results = msg.Candidates
		m.fallback = msg.Fallback
		m.cursor = 0
		m.input.Blur()
		return m, nil

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return CloseMsg{} }
		}
		if m.input.Focused() {
			if msg.Type == tea.KeyEnter {
				query := strings.TrimSpace(m.input.Value())
				if query == "" {
					return m, nil
				}
				m.searching = true
				return m, tea.Batch(m.spinner.Tick, m.search(query))
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Search):
			return m, m.input.Focus()
		case key.Matches(msg, m.keys.Select):
			if m.cursor < len(m.results) {
				picked := m.results[m.cursor]
				return m, func() tea.Msg { return PickedMsg{Candidate: picked} }
			}
		}
	}
	return m, nil
}

// search runs the remote lookup and falls back to the catalog when it
// yields nothing.
func (m Model) search(query string) tea.Cmd {
	s, limit, logger := m.searcher, m.limit, m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()

		found := lookup.SearchOrEmpty(ctx, s, query, limit, logger)
		if len(found) > 0 {
			return ResultsMsg{Query: query, Candidates: found}
		}
		return ResultsMsg{Query: query, Candidates: lookup.Popular(query, limit), Fallback: true}
	}
}

// View renders the panel.
func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1).
		Render("Find Technologies")

	lines := []string{title, m.input.View(), ""}
	switch {
	case m.searching:
		lines = append(lines, m.spinner.View()+" searching...")
	case m.results != nil && len(m.results) == 0:
		lines = append(lines, theme.HelpStyle.Render("No matches."))
	case len(m.results) > 0:
		if m.fallback {
			lines = append(lines, theme.HelpStyle.Render("Search unavailable, showing popular picks."))
		}
		for i, c := range m.results {
			line := fmt.Sprintf("%s  %s  ★%d  %s", c.Name, theme.CategoryStyle(c.Category).Render(string(c.Category)), c.Stars, c.Description)
			if i == m.cursor {
				line = theme.SelectedItemStyle.Render(line)
			} else {
				line = theme.ListItemStyle.Render(line)
			}
			lines = append(lines, line)
		}
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 20)).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}
