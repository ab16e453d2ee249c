package model

import (
	"strings"
	"time"
)

// Default values applied to records that omit optional fields.
const (
	DefaultCategory       = CategoryFrontend
	DefaultDifficulty     = DifficultyBeginner
	DefaultStatus         = StatusNotStarted
	DefaultPriority       = PriorityMedium
	DefaultEstimatedHours = 10
)

// DateLayout is the calendar-day layout used for deadlines.
const DateLayout = "2006-01-02"

// Technology is a single tracked learning entry.
type Technology struct {
	ID             ID         `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       Category   `json:"category"`
	Difficulty     Difficulty `json:"difficulty"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Tags           []string   `json:"tags,omitempty"`
	Notes          string     `json:"notes"`
	EstimatedHours int        `json:"estimatedHours"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// IsCompleted reports whether the technology has been fully learned.
func (t Technology) IsCompleted() bool { return t.Status == StatusCompleted }

// IsOverdue reports whether the deadline lies on a day strictly before now
// and the technology is not completed yet.
func (t Technology) IsOverdue(now time.Time) bool {
	if t.Deadline == nil || t.IsCompleted() {
		return false
	}
	return Day(*t.Deadline).Before(Day(now))
}

// Clone returns a deep copy so callers cannot alias the store's slices.
func (t Technology) Clone() Technology {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	return c
}

// Draft is user-supplied input destined to become a Technology.
// Zero-valued optional fields are filled with defaults on add.
type Draft struct {
	Title          string
	Description    string
	Category       Category
	Difficulty     Difficulty
	Status         Status
	Priority       Priority
	Tags           []string
	Notes          string
	EstimatedHours int
	Deadline       *time.Time
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Title          *string
	Description    *string
	Category       *Category
	Difficulty     *Difficulty
	Status         *Status
	Priority       *Priority
	Tags           *[]string
	Notes          *string
	EstimatedHours *int
	Deadline       *time.Time
	ClearDeadline  bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Difficulty == nil && p.Status == nil && p.Priority == nil &&
		p.Tags == nil && p.Notes == nil && p.EstimatedHours == nil &&
		p.Deadline == nil && !p.ClearDeadline
}

// Day truncates t to its calendar day, expressed as UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a deadline day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// NormalizeTags trims entries and drops empty values and duplicates while
// keeping the first occurrence order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
