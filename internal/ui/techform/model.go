package techform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/theme"
	"github.com/nhle/tech-tracker/internal/validation"
)

// Mode is what the form is doing.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
	ModeNotes
)

// CreatedMsg is dispatched when a new technology is submitted.
type CreatedMsg struct {
	Draft model.Draft
}

// UpdatedMsg is dispatched when an existing technology is edited.
type UpdatedMsg struct {
	ID    model.ID
	Patch model.Patch
}

// NotesMsg is dispatched when only the notes were edited.
type NotesMsg struct {
	ID    model.ID
	Notes string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	category    model.Category
	difficulty  model.Difficulty
	status      model.Status
	priority    model.Priority
	hours       string
	deadline    string
	tags        string
	notes       string
}

// Model is the Bubble Tea model for the create/edit form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	mode   Mode
	editID model.ID
	now    func() time.Time
	width  int
	height int
}

// New creates a new form model. now decides which deadlines are in the past.
func New(now func() time.Time, width, height int) Model {
	if now == nil {
		now = time.Now
	}
	return Model{
		fb:     &formBindings{},
		now:    now,
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new technology.
func (m *Model) StartCreate() tea.Cmd {
	m.mode = ModeCreate
	m.editID = ""
	*m.fb = formBindings{
		category:   model.DefaultCategory,
		difficulty: model.DefaultDifficulty,
		status:     model.DefaultStatus,
		priority:   model.DefaultPriority,
		hours:      strconv.Itoa(model.DefaultEstimatedHours),
	}
	m.form = m.buildForm(m.fullFields())
	return m.form.Init()
}

// StartEdit initializes the form with an existing technology.
func (m *Model) StartEdit(t model.Technology) tea.Cmd {
	m.mode = ModeEdit
	m.editID = t.ID
	m.fill(t)
	m.form = m.buildForm(m.fullFields())
	return m.form.Init()
}

// StartNotes opens a notes-only form for t.
func (m *Model) StartNotes(t model.Technology) tea.Cmd {
	m.mode = ModeNotes
	m.editID = t.ID
	m.fill(t)
	m.form = m.buildForm([]huh.Field{
		huh.NewText().
			Title("Notes for " + t.Title).
			Value(&m.fb.notes).
			Validate(validateNotes),
	})
	return m.form.Init()
}

func (m *Model) fill(t model.Technology) {
	*m.fb = formBindings{
		title:       t.Title,
		description: t.Description,
		category:    t.Category,
		difficulty:  t.Difficulty,
		status:      t.Status,
		priority:    t.Priority,
		hours:       strconv.Itoa(t.EstimatedHours),
		tags:        strings.Join(t.Tags, ", "),
		notes:       t.Notes,
	}
	if t.Deadline != nil {
		m.fb.deadline = t.Deadline.Format(model.DateLayout)
	}
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Technology"
	switch m.mode {
	case ModeEdit:
		titleText = "Edit Technology"
	case ModeNotes:
		titleText = "Notes"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm(fields []huh.Field) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) fullFields() []huh.Field {
	return []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("e.g. Kubernetes").
			Value(&m.fb.title).
			Validate(validateTitle),
		huh.NewText().
			Title("Description").
			Placeholder("What will you learn?").
			Value(&m.fb.description).
			Validate(validateDescription),
		huh.NewSelect[model.Category]().
			Title("Category").
			Options(options(model.Categories, func(c model.Category) string { return string(c) })...).
			Value(&m.fb.category),
		huh.NewSelect[model.Difficulty]().
			Title("Difficulty").
			Options(options(model.Difficulties, func(d model.Difficulty) string { return string(d) })...).
			Value(&m.fb.difficulty),
		huh.NewSelect[model.Status]().
			Title("Status").
			Options(options(model.Statuses, model.Status.Label)...).
			Value(&m.fb.status),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(options(model.Priorities, func(p model.Priority) string { return string(p) })...).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Estimated hours").
			Value(&m.fb.hours).
			Validate(validateHours),
		huh.NewInput().
			Title("Deadline").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.deadline).
			Validate(m.validateDeadline),
		huh.NewInput().
			Title("Tags").
			Placeholder("comma separated (optional)").
			Value(&m.fb.tags),
		huh.NewText().
			Title("Notes").
			Value(&m.fb.notes).
			Validate(validateNotes),
	}
}

func (m Model) handleSubmit() tea.Cmd {
	switch m.mode {
	case ModeNotes:
		msg := NotesMsg{ID: m.editID, Notes: m.fb.notes}
		return func() tea.Msg { return msg }
	case ModeEdit:
		msg := UpdatedMsg{ID: m.editID, Patch: m.fb.patch()}
		return func() tea.Msg { return msg }
	}
	msg := CreatedMsg{Draft: m.fb.draft()}
	return func() tea.Msg { return msg }
}

func (fb *formBindings) draft() model.Draft {
	d := model.Draft{
		Title:       strings.TrimSpace(fb.title),
		Description: strings.TrimSpace(fb.description),
		Category:    fb.category,
		Difficulty:  fb.difficulty,
		Status:      fb.status,
		Priority:    fb.priority,
		Tags:        splitTags(fb.tags),
		Notes:       fb.notes,
	}
	d.EstimatedHours, _ = strconv.Atoi(strings.TrimSpace(fb.hours))
	if day, err := model.ParseDay(fb.deadline); err == nil {
		d.Deadline = &day
	}
	return d
}

// patch sets every field the full form shows; an emptied deadline clears it.
func (fb *formBindings) patch() model.Patch {
	d := fb.draft()
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	p := model.Patch{
		Title:       &d.Title,
		Description: &d.Description,
		Category:    &d.Category,
		Difficulty:  &d.Difficulty,
		Status:      &d.Status,
		Priority:    &d.Priority,
		Tags:        &tags,
		Notes:       &d.Notes,
		Deadline:    d.Deadline,
	}
	if d.EstimatedHours > 0 {
		p.EstimatedHours = &d.EstimatedHours
	}
	if d.Deadline == nil {
		p.ClearDeadline = true
	}
	return p
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func options[T comparable](values []T, label func(T) string) []huh.Option[T] {
	out := make([]huh.Option[T], len(values))
	for i, v := range values {
		out[i] = huh.NewOption(label(v), v)
	}
	return out
}

func splitTags(s string) []string {
	return model.NormalizeTags(strings.Split(s, ","))
}

func validateTitle(s string) error {
	return violation(model.Draft{Title: s, Description: strings.Repeat("x", validation.MinDescriptionLen)}, "title")
}

func validateDescription(s string) error {
	return violation(model.Draft{Title: "xxx", Description: s}, "description")
}

func validateNotes(s string) error {
	return violation(model.Draft{Title: "xxx", Description: strings.Repeat("x", validation.MinDescriptionLen), Notes: s}, "notes")
}

func violation(d model.Draft, field string) error {
	v := validation.Validate(d, time.Time{}, true)
	if reason, ok := v[field]; ok {
		return fmt.Errorf("%s", reason)
	}
	return nil
}

func validateHours(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	h, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("estimate must be a whole number of hours")
	}
	if reason := validation.CheckHours(h); reason != "" {
		return fmt.Errorf("%s", reason)
	}
	return nil
}

func (m Model) validateDeadline(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	day, err := model.ParseDay(s)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	if reason := validation.CheckDeadline(day, m.now()); reason != "" {
		return fmt.Errorf("%s", reason)
	}
	return nil
}
