package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tech-tracker/internal/lookup"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/ui/detail"
)

// similarLimit caps the related records listed in the detail view.
const similarLimit = 5

// opResultMsg reports the outcome of a tracker mutation.
type opResultMsg struct {
	notice  string
	err     error
	deleted bool
}

// result turns a mutation outcome into a message. A persistence failure is
// reported but the change stays visible, since the tracker keeps it.
func result(done string, err error) opResultMsg {
	if err == nil {
		return opResultMsg{notice: done}
	}
	if vErr, ok := model.IsValidationError(err); ok {
		return opResultMsg{notice: vErr.Error(), err: err}
	}
	if errors.Is(err, model.ErrPersistence) {
		return opResultMsg{notice: done + " (not saved: " + err.Error() + ")", err: err}
	}
	return opResultMsg{notice: err.Error(), err: err}
}

func (m *Model) create(d model.Draft) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		t, err := s.Create(context.Background(), d, true)
		if err != nil && t.ID == "" {
			return result("", err)
		}
		return result(fmt.Sprintf("added %q", t.Title), err)
	}
}

func (m *Model) update(id model.ID, p model.Patch) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		t, err := s.Edit(context.Background(), id, p, true)
		return result(fmt.Sprintf("updated %q", t.Title), err)
	}
}

func (m *Model) updateNotes(id model.ID, notes string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		t, err := s.UpdateNotes(context.Background(), id, notes)
		return result(fmt.Sprintf("saved notes for %q", t.Title), err)
	}
}

func (m *Model) advance(id model.ID) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		t, err := s.AdvanceStatus(context.Background(), id)
		return result(fmt.Sprintf("%q is now %s", t.Title, t.Status.Label()), err)
	}
}

func (m *Model) remove(id model.ID, title string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		msg := result(fmt.Sprintf("deleted %q", title), s.Delete(context.Background(), id))
		msg.deleted = true
		return msg
	}
}

func (m *Model) addCandidate(c lookup.Candidate) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		t, err := s.Create(context.Background(), c.Draft(), false)
		if err != nil && t.ID == "" {
			return result("", err)
		}
		return result(fmt.Sprintf("now tracking %q", t.Title), err)
	}
}

// loadDetail fetches a record and its similar records for the detail view.
func (m *Model) loadDetail(id model.ID) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		t, err := s.Get(id)
		if err != nil {
			return detail.LoadedMsg{}
		}
		similar, _ := s.Similar(id, similarLimit)
		return detail.LoadedMsg{Tech: &t, Similar: similar, Now: s.Now()}
	}
}
