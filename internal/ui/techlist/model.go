package techlist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tech-tracker/internal/keys"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/theme"
	"github.com/nhle/tech-tracker/internal/tracker"
)

// ItemsLoadedMsg is sent when the filtered collection has been queried.
type ItemsLoadedMsg struct {
	Items []model.Technology
	Err   error
}

// SelectedMsg is sent when a user selects a record to view details.
type SelectedMsg struct {
	ID model.ID
}

// Model is the main technology list view component.
type Model struct {
	list        list.Model
	store       *tracker.Store
	keys        *keys.KeyMap
	filter      tracker.Filter
	sortIndex   int
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new list model. sortBy and desc seed the initial order.
func New(s *tracker.Store, k *keys.KeyMap, sortBy tracker.SortField, desc bool, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Technologies"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search title, description, notes, tags..."
	si.Prompt = "/ "
	si.Width = width - 4

	m := Model{
		list:        l,
		store:       s,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
	m.filter.SortBy = sortBy
	m.filter.Dir = tracker.Asc
	if desc {
		m.filter.Dir = tracker.Desc
	}
	for i, f := range tracker.SortFields {
		if f == sortBy {
			m.sortIndex = i
		}
	}
	return m
}

// Init returns a command that loads the initial set of records.
func (m Model) Init() tea.Cmd {
	return m.LoadItems()
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ItemsLoadedMsg:
		now := m.store.Now()
		items := make([]list.Item, len(msg.Items))
		for i, t := range msg.Items {
			items[i] = TechItem{Tech: t, Now: now}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.filter.Query = strings.TrimSpace(m.searchInput.Value())
		return m, m.LoadItems()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = ""
		return m, m.LoadItems()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		t, ok := m.SelectedItem()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return SelectedMsg{ID: t.ID} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.filter.Query)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterStatus):
		m.filter.Status = cycle(m.filter.Status, enumStrings(model.Statuses))
		return m, m.LoadItems()

	case key.Matches(msg, m.keys.FilterCategory):
		m.filter.Category = cycle(m.filter.Category, enumStrings(model.Categories))
		return m, m.LoadItems()

	case key.Matches(msg, m.keys.ClearFilters):
		return m, m.ClearFilters()

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(tracker.SortFields)
		m.filter.SortBy = tracker.SortFields[m.sortIndex]
		return m, m.LoadItems()

	case key.Matches(msg, m.keys.ReverseSort):
		if m.filter.Dir == tracker.Desc {
			m.filter.Dir = tracker.Asc
		} else {
			m.filter.Dir = tracker.Desc
		}
		return m, m.LoadItems()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SelectedItem returns the record under the cursor.
func (m Model) SelectedItem() (model.Technology, bool) {
	item, ok := m.list.SelectedItem().(TechItem)
	if !ok {
		return model.Technology{}, false
	}
	return item.Tech, true
}

// ClearFilters drops search and exact-match filters but keeps the order.
func (m *Model) ClearFilters() tea.Cmd {
	m.filter = tracker.Filter{SortBy: m.filter.SortBy, Dir: m.filter.Dir}
	m.searchInput.Reset()
	return m.LoadItems()
}

// SetOnlyOverdue toggles the overdue-only filter.
func (m *Model) SetOnlyOverdue(on bool) tea.Cmd {
	m.filter.OnlyOverdue = on
	return m.LoadItems()
}

// FilterSummary describes the active filters, or "" when none apply.
func (m Model) FilterSummary() string {
	var parts []string
	if m.filter.Query != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.filter.Query))
	}
	if m.filter.Status != "" {
		parts = append(parts, "status "+m.filter.Status)
	}
	if m.filter.Category != "" {
		parts = append(parts, "category "+m.filter.Category)
	}
	if m.filter.OnlyOverdue {
		parts = append(parts, "overdue")
	}
	return strings.Join(parts, ", ")
}

// SortSummary describes the current order, e.g. "createdAt desc".
func (m Model) SortSummary() string {
	return fmt.Sprintf("%s %s", m.filter.SortBy, m.filter.Dir)
}

// View renders the list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no records are visible.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.FilterSummary() != "" {
		return style.Render("No matching technologies.\nPress 0 to clear filters.")
	}

	return style.Render(
		"Nothing tracked yet.\n\n" +
			"Press n to add a technology or L to find one.",
	)
}

// LoadItems returns a tea.Cmd that queries the store with the current filter.
func (m Model) LoadItems() tea.Cmd {
	filter := m.filter
	s := m.store
	return func() tea.Msg {
		items, err := s.Query(filter)
		return ItemsLoadedMsg{Items: items, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}

// cycle steps current through "" followed by values, wrapping back to "".
func cycle(current string, values []string) string {
	if current == "" {
		return values[0]
	}
	for i, v := range values {
		if v == current && i+1 < len(values) {
			return values[i+1]
		}
	}
	return ""
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
