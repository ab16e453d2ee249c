package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/keys"
	"github.com/nhle/tech-tracker/internal/lookup"
	"github.com/nhle/tech-tracker/internal/model"
	appsync "github.com/nhle/tech-tracker/internal/sync"
	"github.com/nhle/tech-tracker/internal/tracker"
	"github.com/nhle/tech-tracker/internal/ui"
	"github.com/nhle/tech-tracker/internal/ui/detail"
	helpview "github.com/nhle/tech-tracker/internal/ui/help"
	"github.com/nhle/tech-tracker/internal/ui/lookupview"
	"github.com/nhle/tech-tracker/internal/ui/statsview"
	"github.com/nhle/tech-tracker/internal/ui/techform"
	"github.com/nhle/tech-tracker/internal/ui/techlist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewForm
	ViewStats
	ViewLookup
)

// Options wires the root model to its collaborators.
type Options struct {
	Store *tracker.Store
	// Watcher, when set, reloads the list after foreign writes.
	Watcher *appsync.Watcher
	// Searcher backs the lookup panel; nil serves only the built-in catalog.
	Searcher     lookup.Searcher
	LookupLimit  int
	GlamourStyle string
	SortBy       tracker.SortField
	SortDesc     bool
	Logger       *zap.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the tracker.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	store        *tracker.Store
	watcher      *appsync.Watcher
	keys         *keys.KeyMap
	logger       *zap.Logger

	techList  techlist.Model
	detail    detail.Model
	helpView  helpview.Model
	form      techform.Model
	statsView statsview.Model
	lookup    lookupview.Model

	// pendingDelete holds the id awaiting y/n confirmation.
	pendingDelete *pendingDelete
	notice        string
	noticeIsError bool
	ready         bool
}

type pendingDelete struct {
	id    model.ID
	title string
}

// New creates a new root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = tracker.SortCreatedAt
	}

	return Model{
		currentView: ViewList,
		store:       opts.Store,
		watcher:     opts.Watcher,
		keys:        k,
		logger:      logger.Named("tui"),
		techList:    techlist.New(opts.Store, k, sortBy, opts.SortDesc, 80, 24),
		detail:      detail.New(opts.GlamourStyle, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		form:        techform.New(opts.Store.Now, 80, 24),
		statsView:   statsview.New(k, 80, 24),
		lookup:      lookupview.New(opts.Searcher, opts.LookupLimit, logger, k, 80, 24),
	}
}

// Init loads the list and starts watching for foreign writes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.techList.Init()}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.Start(context.Background()))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.techList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.form.SetSize(w, h)
		m.statsView.SetSize(w, h)
		m.lookup.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.ReloadedMsg:
		if msg.Err != nil {
			m.setNotice("reload failed: "+msg.Err.Error(), true)
		} else {
			m.setNotice("reloaded changes made elsewhere", false)
		}
		cmds := []tea.Cmd{m.techList.LoadItems(), m.watcher.WaitForNextResult()}
		if m.currentView == ViewDetail {
			cmds = append(cmds, m.loadDetail(m.detail.Current()))
		}
		return m, tea.Batch(cmds...)

	case opResultMsg:
		m.setNotice(msg.notice, msg.err != nil)
		if msg.err != nil {
			m.logger.Warn("operation failed", zap.Error(msg.err))
		}
		cmds := []tea.Cmd{m.techList.LoadItems()}
		if m.currentView == ViewDetail && !msg.deleted {
			cmds = append(cmds, m.loadDetail(m.detail.Current()))
		}
		if msg.deleted && m.currentView == ViewDetail {
			m.currentView = ViewList
		}
		return m, tea.Batch(cmds...)

	case techlist.ItemsLoadedMsg:
		if msg.Err != nil {
			m.setNotice(msg.Err.Error(), true)
		}
		var cmd tea.Cmd
		m.techList, cmd = m.techList.Update(msg)
		return m, cmd

	case techlist.SelectedMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadDetail(msg.ID)

	case detail.LoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		if msg.Tech == nil && m.currentView == ViewDetail {
			m.currentView = ViewList
		}
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		return m.handleDetailAction(msg)

	case techform.CreatedMsg:
		m.currentView = m.previousView
		return m, m.create(msg.Draft)

	case techform.UpdatedMsg:
		m.currentView = m.previousView
		return m, m.update(msg.ID, msg.Patch)

	case techform.NotesMsg:
		m.currentView = m.previousView
		return m, m.updateNotes(msg.ID, msg.Notes)

	case techform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case statsview.CloseMsg, lookupview.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case lookupview.PickedMsg:
		m.currentView = ViewList
		return m, m.addCandidate(msg.Candidate)

	case tea.KeyMsg:
		if m.pendingDelete != nil {
			return m.confirmDelete(msg)
		}
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.currentView == ViewList && !m.techList.Searching() {
			if next, cmd, handled := m.handleListKeys(msg); handled {
				return next, cmd
			}
		}
		if m.currentView == ViewHelp && (key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back)) {
			m.currentView = m.previousView
			return m, nil
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleListKeys processes the global keys available on the list view.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		next, cmd := m.quit()
		return next, cmd, true

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.New):
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.form.StartCreate(), true

	case key.Matches(msg, m.keys.Stats):
		m.statsView.SetStats(m.store.Stats())
		m.previousView = m.currentView
		m.currentView = ViewStats
		return m, nil, true

	case key.Matches(msg, m.keys.Lookup):
		m.previousView = m.currentView
		m.currentView = ViewLookup
		return m, m.lookup.Focus(), true
	}

	t, ok := m.techList.SelectedItem()
	if !ok {
		return m, nil, false
	}
	switch {
	case key.Matches(msg, m.keys.Edit):
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.form.StartEdit(t), true
	case key.Matches(msg, m.keys.Notes):
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.form.StartNotes(t), true
	case key.Matches(msg, m.keys.Advance):
		return m, m.advance(t.ID), true
	case key.Matches(msg, m.keys.Delete):
		m.pendingDelete = &pendingDelete{id: t.ID, title: t.Title}
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) handleDetailAction(msg detail.ActionMsg) (tea.Model, tea.Cmd) {
	t, err := m.store.Get(msg.ID)
	if err != nil {
		m.setNotice(err.Error(), true)
		m.currentView = ViewList
		return m, m.techList.LoadItems()
	}

	switch msg.Action {
	case detail.ActionEdit:
		m.previousView = ViewDetail
		m.currentView = ViewForm
		return m, m.form.StartEdit(t)
	case detail.ActionNotes:
		m.previousView = ViewDetail
		m.currentView = ViewForm
		return m, m.form.StartNotes(t)
	case detail.ActionAdvance:
		return m, m.advance(t.ID)
	case detail.ActionDelete:
		m.pendingDelete = &pendingDelete{id: t.ID, title: t.Title}
	}
	return m, nil
}

func (m Model) confirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pending := m.pendingDelete
	m.pendingDelete = nil
	if msg.String() == "y" || msg.String() == "Y" {
		return m, m.remove(pending.id, pending.title)
	}
	m.setNotice("delete cancelled", false)
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	return m, tea.Quit
}

func (m *Model) setNotice(text string, isError bool) {
	m.notice = text
	m.noticeIsError = isError
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if _, isKey := msg.(tea.KeyMsg); isKey {
		m.notice = ""
	}

	switch m.currentView {
	case ViewList:
		m.techList, cmd = m.techList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	case ViewStats:
		m.statsView, cmd = m.statsView.Update(msg)
	case ViewLookup:
		m.lookup, cmd = m.lookup.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Tech Tracker", m.summary())
	content := m.renderContent()

	notice, isErr := m.notice, m.noticeIsError
	if m.pendingDelete != nil {
		notice, isErr = fmt.Sprintf("delete %q? y/n", m.pendingDelete.title), true
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), notice, isErr)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.techList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewForm:
		return m.form.View()
	case ViewStats:
		return m.statsView.View()
	case ViewLookup:
		return m.lookup.View()
	default:
		return ""
	}
}

// summary returns the progress shown on the right of the header.
func (m Model) summary() string {
	s := m.store.Stats()
	text := fmt.Sprintf("%d/%d completed · %d%%", s.Completed, s.Total, s.Progress)
	if s.Overdue > 0 {
		text += fmt.Sprintf(" · %d overdue", s.Overdue)
	}
	return text
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back | e edit | x next status | m notes | d delete | j/k scroll"
	case ViewForm:
		return "enter submit | esc cancel"
	case ViewStats:
		return "esc back"
	case ViewLookup:
		return "enter search/pick | / new search | esc back"
	default:
		hint := "q quit | ? help | n new | / search | 1 status | 2 category | tab sort (" + m.techList.SortSummary() + ")"
		if f := m.techList.FilterSummary(); f != "" {
			hint = f + " | 0 clear | " + hint
		}
		return hint
	}
}
