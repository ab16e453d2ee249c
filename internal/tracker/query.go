package tracker

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nhle/tech-tracker/internal/model"
)

// SortField names a sortable record field.
type SortField string

const (
	SortTitle          SortField = "title"
	SortDescription    SortField = "description"
	SortCategory       SortField = "category"
	SortDifficulty     SortField = "difficulty"
	SortStatus         SortField = "status"
	SortPriority       SortField = "priority"
	SortEstimatedHours SortField = "estimatedHours"
	SortCreatedAt      SortField = "createdAt"
	SortUpdatedAt      SortField = "updatedAt"
	SortDeadline       SortField = "deadline"
)

// SortFields lists every sortable field in display order.
var SortFields = []SortField{
	SortCreatedAt, SortUpdatedAt, SortTitle, SortCategory, SortDifficulty,
	SortStatus, SortPriority, SortEstimatedHours, SortDeadline, SortDescription,
}

// ParseSortField accepts field names case-insensitively; snake_case
// spellings such as "created_at" are accepted too.
func ParseSortField(s string) (SortField, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
	for _, f := range SortFields {
		if strings.ToLower(string(f)) == key {
			return f, nil
		}
	}
	return "", fmt.Errorf("sort field %q: %w", s, model.ErrInvalidValue)
}

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection converts "asc"/"desc" into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc, "ascending":
		return Asc, nil
	case Desc, "descending":
		return Desc, nil
	}
	return "", fmt.Errorf("sort direction %q: %w", s, model.ErrInvalidValue)
}

// Filter combines search, exact-match filters and ordering. Empty or "all"
// filter values disable that filter; an empty SortBy keeps stored order.
type Filter struct {
	Query       string
	Status      string
	Category    string
	Difficulty  string
	Priority    string
	Tag         string
	OnlyOverdue bool
	SortBy      SortField
	Dir         Direction
}

// Search returns the records whose title, description, category, notes or
// any tag contain query, case-insensitively. A blank query returns all.
func (s *Store) Search(query string) []model.Technology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return search(s.items, query)
}

// FilterByStatus returns records with exactly this status, or all for "all".
func (s *Store) FilterByStatus(status string) []model.Technology {
	return s.filterBy(status, func(t model.Technology) string { return string(t.Status) })
}

// FilterByCategory returns records with exactly this category, or all for "all".
func (s *Store) FilterByCategory(category string) []model.Technology {
	return s.filterBy(category, func(t model.Technology) string { return string(t.Category) })
}

// FilterByDifficulty returns records with exactly this difficulty, or all for "all".
func (s *Store) FilterByDifficulty(difficulty string) []model.Technology {
	return s.filterBy(difficulty, func(t model.Technology) string { return string(t.Difficulty) })
}

func (s *Store) filterBy(value string, field func(model.Technology) string) []model.Technology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterExact(s.items, value, field)
}

// Sort returns the collection stably ordered by field. Ties keep their
// stored relative order.
func (s *Store) Sort(field SortField, dir Direction) ([]model.Technology, error) {
	compare, err := comparator(field)
	if err != nil {
		return nil, err
	}
	if dir != Asc && dir != Desc {
		return nil, fmt.Errorf("sort direction %q: %w", dir, model.ErrInvalidValue)
	}

	s.mu.Lock()
	out := cloneAll(s.items)
	s.mu.Unlock()

	sortStable(out, compare, dir)
	return out, nil
}

// Query applies every part of f in one pass over a snapshot.
func (s *Store) Query(f Filter) ([]model.Technology, error) {
	var compare func(a, b model.Technology) int
	if f.SortBy != "" {
		var err error
		if compare, err = comparator(f.SortBy); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	now := s.now()
	out := search(s.items, f.Query)
	s.mu.Unlock()

	out = filterExact(out, f.Status, func(t model.Technology) string { return string(t.Status) })
	out = filterExact(out, f.Category, func(t model.Technology) string { return string(t.Category) })
	out = filterExact(out, f.Difficulty, func(t model.Technology) string { return string(t.Difficulty) })
	out = filterExact(out, f.Priority, func(t model.Technology) string { return string(t.Priority) })
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		out = slices.DeleteFunc(out, func(t model.Technology) bool {
			return !slices.ContainsFunc(t.Tags, func(x string) bool { return strings.EqualFold(x, tag) })
		})
	}
	if f.OnlyOverdue {
		out = slices.DeleteFunc(out, func(t model.Technology) bool { return !t.IsOverdue(now) })
	}

	if compare != nil {
		dir := f.Dir
		if dir == "" {
			dir = Asc
		}
		sortStable(out, compare, dir)
	}
	return out, nil
}

// Similar returns up to limit other records sharing the category or the
// difficulty of the record with the given id, in stored order.
func (s *Store) Similar(id model.ID, limit int) ([]model.Technology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("finding technologies similar to %s: %w", id, model.ErrNotFound)
	}
	target := s.items[i]

	out := []model.Technology{}
	for _, t := range s.items {
		if limit >= 0 && len(out) >= limit {
			break
		}
		if t.ID == target.ID {
			continue
		}
		if t.Category == target.Category || t.Difficulty == target.Difficulty {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Overdue returns incomplete records whose deadline day is before today.
func (s *Store) Overdue() []model.Technology {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := []model.Technology{}
	for _, t := range s.items {
		if t.IsOverdue(now) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func search(items []model.Technology, query string) []model.Technology {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return cloneAll(orEmpty(items))
	}

	out := []model.Technology{}
	for _, t := range items {
		if matches(t, q) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func matches(t model.Technology, q string) bool {
	for _, field := range []string{t.Title, t.Description, string(t.Category), t.Notes} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func filterExact(items []model.Technology, value string, field func(model.Technology) string) []model.Technology {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, model.FilterAll) {
		return cloneAll(orEmpty(items))
	}

	out := []model.Technology{}
	for _, t := range items {
		if field(t) == value {
			out = append(out, t.Clone())
		}
	}
	return out
}

func comparator(field SortField) (func(a, b model.Technology) int, error) {
	text := func(get func(model.Technology) string) func(a, b model.Technology) int {
		return func(a, b model.Technology) int {
			return strings.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
		}
	}
	instant := func(get func(model.Technology) time.Time) func(a, b model.Technology) int {
		return func(a, b model.Technology) int { return get(a).Compare(get(b)) }
	}

	switch field {
	case SortTitle:
		return text(func(t model.Technology) string { return t.Title }), nil
	case SortDescription:
		return text(func(t model.Technology) string { return t.Description }), nil
	case SortCategory:
		return text(func(t model.Technology) string { return string(t.Category) }), nil
	case SortDifficulty:
		return text(func(t model.Technology) string { return string(t.Difficulty) }), nil
	case SortStatus:
		return text(func(t model.Technology) string { return string(t.Status) }), nil
	case SortPriority:
		return text(func(t model.Technology) string { return string(t.Priority) }), nil
	case SortEstimatedHours:
		return func(a, b model.Technology) int { return a.EstimatedHours - b.EstimatedHours }, nil
	case SortCreatedAt:
		return instant(func(t model.Technology) time.Time { return t.CreatedAt }), nil
	case SortUpdatedAt:
		return instant(func(t model.Technology) time.Time { return t.UpdatedAt }), nil
	case SortDeadline:
		// Records without a deadline sort as the zero instant.
		return instant(func(t model.Technology) time.Time {
			if t.Deadline == nil {
				return time.Time{}
			}
			return *t.Deadline
		}), nil
	}
	return nil, fmt.Errorf("sort field %q: %w", field, model.ErrInvalidValue)
}

func sortStable(items []model.Technology, cmp func(a, b model.Technology) int, dir Direction) {
	slices.SortStableFunc(items, func(a, b model.Technology) int {
		if dir == Desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
}

func orEmpty(items []model.Technology) []model.Technology {
	if items == nil {
		return []model.Technology{}
	}
	return items
}
