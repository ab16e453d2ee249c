package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FilterAll is the sentinel filter value that disables a filter.
const FilterAll = "all"

// ID identifies a technology. Imported payloads may carry numeric ids;
// they are kept in their decimal string form.
type ID string

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Status is the learning state of a technology.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in cycle order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Next advances along not-started -> in-progress -> completed -> not-started.
func (s Status) Next() Status {
	switch s {
	case StatusNotStarted:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// Label returns a human-readable name.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "Not started"
	case StatusInProgress:
		return "In progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(normalizeEnum(s))
	if st == "inprogress" || st == "in_progress" {
		st = StatusInProgress
	}
	if st == "notstarted" || st == "not_started" {
		st = StatusNotStarted
	}
	if !st.Valid() {
		return "", fmt.Errorf("status %q: %w", s, ErrInvalidValue)
	}
	return st, nil
}

// Category groups technologies by area.
type Category string

const (
	CategoryFrontend Category = "frontend"
	CategoryBackend  Category = "backend"
	CategoryDatabase Category = "database"
	CategoryDevOps   Category = "devops"
	CategoryMobile   Category = "mobile"
	CategoryAI       Category = "ai"
	CategoryTools    Category = "tools"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFrontend, CategoryBackend, CategoryDatabase, CategoryDevOps,
	CategoryMobile, CategoryAI, CategoryTools,
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(normalizeEnum(s))
	if !c.Valid() {
		return "", fmt.Errorf("category %q: %w", s, ErrInvalidValue)
	}
	return c, nil
}

// Difficulty is the expected effort level.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// Difficulties lists every difficulty from easiest to hardest.
var Difficulties = []Difficulty{
	DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert,
}

// Valid reports whether d is one of the enumerated difficulties.
func (d Difficulty) Valid() bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDifficulty converts user input into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(normalizeEnum(s))
	if !d.Valid() {
		return "", fmt.Errorf("difficulty %q: %w", s, ErrInvalidValue)
	}
	return d, nil
}

// Priority ranks how urgent a technology is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(normalizeEnum(s))
	if !p.Valid() {
		return "", fmt.Errorf("priority %q: %w", s, ErrInvalidValue)
	}
	return p, nil
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
