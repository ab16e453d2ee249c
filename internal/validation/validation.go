// Package validation checks drafts before they reach the tracker.
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nhle/tech-tracker/internal/model"
)

// Limits applied by the form paths.
const (
	MinTitleLen       = 3
	MaxTitleLen       = 100
	MinDescriptionLen = 10
	MaxDescriptionLen = 500
	MaxNotesLen       = 500
	MinHours          = 1
	MaxHours          = 1000
)

// Validate returns the violations found in d. The strict path adds the upper
// bounds used by the full form. now decides whether a deadline lies in the past.
func Validate(d model.Draft, now time.Time, strict bool) model.Violations {
	v := model.Violations{}

	title := strings.TrimSpace(d.Title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		v["title"] = "title is required"
	case n < MinTitleLen:
		v["title"] = fmt.Sprintf("title must be at least %d characters", MinTitleLen)
	case strict && n > MaxTitleLen:
		v["title"] = fmt.Sprintf("title must be at most %d characters", MaxTitleLen)
	}

	desc := strings.TrimSpace(d.Description)
	switch n := utf8.RuneCountInString(desc); {
	case n == 0:
		v["description"] = "description is required"
	case n < MinDescriptionLen:
		v["description"] = fmt.Sprintf("description must be at least %d characters", MinDescriptionLen)
	case strict && n > MaxDescriptionLen:
		v["description"] = fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen)
	}

	if d.EstimatedHours != 0 {
		if reason := CheckHours(d.EstimatedHours); reason != "" {
			v["estimatedHours"] = reason
		}
	}

	if d.Deadline != nil {
		if reason := CheckDeadline(*d.Deadline, now); reason != "" {
			v["deadline"] = reason
		}
	}

	if d.Category != "" && !d.Category.Valid() {
		v["category"] = fmt.Sprintf("unknown category %q", d.Category)
	}
	if d.Difficulty != "" && !d.Difficulty.Valid() {
		v["difficulty"] = fmt.Sprintf("unknown difficulty %q", d.Difficulty)
	}
	if d.Status != "" && !d.Status.Valid() {
		v["status"] = fmt.Sprintf("unknown status %q", d.Status)
	}
	if d.Priority != "" && !d.Priority.Valid() {
		v["priority"] = fmt.Sprintf("unknown priority %q", d.Priority)
	}

	if strict {
		if utf8.RuneCountInString(d.Notes) > MaxNotesLen {
			v["notes"] = fmt.Sprintf("notes must be at most %d characters", MaxNotesLen)
		}
	}

	return v
}

// CheckHours returns a violation reason for an estimate outside [1, 1000].
func CheckHours(h int) string {
	if h < MinHours {
		return fmt.Sprintf("estimate must be at least %d hour", MinHours)
	}
	if h > MaxHours {
		return fmt.Sprintf("estimate must be at most %d hours", MaxHours)
	}
	return ""
}

// CheckDeadline rejects days strictly before today; time of day is ignored.
func CheckDeadline(deadline, now time.Time) string {
	if model.Day(deadline).Before(model.Day(now)) {
		return "deadline cannot be in the past"
	}
	return ""
}
