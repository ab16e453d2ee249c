package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/validation"
)

// applyDefaults replaces empty or unknown fields with their defaults so that
// only enumerated values are ever stored.
func applyDefaults(t *model.Technology) {
	if !t.Category.Valid() {
		t.Category = model.DefaultCategory
	}
	if !t.Difficulty.Valid() {
		t.Difficulty = model.DefaultDifficulty
	}
	if !t.Status.Valid() {
		t.Status = model.DefaultStatus
	}
	if !t.Priority.Valid() {
		t.Priority = model.DefaultPriority
	}
	if t.EstimatedHours <= 0 {
		t.EstimatedHours = model.DefaultEstimatedHours
	}
}

// normalize repairs a record that came from outside the store.
func (s *Store) normalize(t *model.Technology, now time.Time) {
	t.Title = strings.TrimSpace(t.Title)
	applyDefaults(t)
	t.Tags = model.NormalizeTags(t.Tags)
	if t.Deadline != nil {
		day := model.Day(*t.Deadline)
		t.Deadline = &day
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
}

// normalizeAll normalizes every record and regenerates missing or repeated
// ids. The first record keeps a contested id.
func (s *Store) normalizeAll(items []model.Technology) []model.Technology {
	now := s.now()
	out := make([]model.Technology, 0, len(items))
	seen := make(map[model.ID]bool, len(items))
	for _, t := range items {
		s.normalize(&t, now)
		if t.ID == "" || seen[t.ID] {
			for t.ID == "" || seen[t.ID] {
				t.ID = s.newID()
			}
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

func checkImportable(items []model.Technology) error {
	for i, t := range items {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("technology #%d has no title: %w", i+1, model.ErrInvalidFormat)
		}
	}
	return nil
}

func checkDraftEnums(d model.Draft) error {
	if d.Category != "" && !d.Category.Valid() {
		return fmt.Errorf("category %q: %w", d.Category, model.ErrInvalidValue)
	}
	if d.Difficulty != "" && !d.Difficulty.Valid() {
		return fmt.Errorf("difficulty %q: %w", d.Difficulty, model.ErrInvalidValue)
	}
	if d.Status != "" && !d.Status.Valid() {
		return fmt.Errorf("status %q: %w", d.Status, model.ErrInvalidValue)
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return fmt.Errorf("priority %q: %w", d.Priority, model.ErrInvalidValue)
	}
	return nil
}

func checkPatchEnums(p model.Patch) error {
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("category %q: %w", *p.Category, model.ErrInvalidValue)
	}
	if p.Difficulty != nil && !p.Difficulty.Valid() {
		return fmt.Errorf("difficulty %q: %w", *p.Difficulty, model.ErrInvalidValue)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("status %q: %w", *p.Status, model.ErrInvalidValue)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("priority %q: %w", *p.Priority, model.ErrInvalidValue)
	}
	return nil
}

// patchViolations validates t with p applied, keeping only the violations of
// fields p sets. An explicit estimate is checked even when applyPatch would
// ignore it.
func patchViolations(t model.Technology, p model.Patch, now time.Time, strict bool) model.Violations {
	applyPatch(&t, p)
	all := validation.Validate(model.Draft{
		Title:          t.Title,
		Description:    t.Description,
		Category:       t.Category,
		Difficulty:     t.Difficulty,
		Status:         t.Status,
		Priority:       t.Priority,
		Tags:           t.Tags,
		Notes:          t.Notes,
		EstimatedHours: t.EstimatedHours,
		Deadline:       t.Deadline,
	}, now, strict)

	touched := map[string]bool{
		"title":       p.Title != nil,
		"description": p.Description != nil,
		"category":    p.Category != nil,
		"difficulty":  p.Difficulty != nil,
		"status":      p.Status != nil,
		"priority":    p.Priority != nil,
		"notes":       p.Notes != nil,
		"deadline":    p.Deadline != nil && !p.ClearDeadline,
	}
	v := model.Violations{}
	for field, reason := range all {
		if touched[field] {
			v[field] = reason
		}
	}
	if p.EstimatedHours != nil {
		if reason := validation.CheckHours(*p.EstimatedHours); reason != "" {
			v["estimatedHours"] = reason
		}
	}
	return v
}

// applyPatch copies the set fields of p onto t.
func applyPatch(t *model.Technology, p model.Patch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Difficulty != nil {
		t.Difficulty = *p.Difficulty
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = model.NormalizeTags(*p.Tags)
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.EstimatedHours != nil && *p.EstimatedHours > 0 {
		t.EstimatedHours = *p.EstimatedHours
	}
	switch {
	case p.ClearDeadline:
		t.Deadline = nil
	case p.Deadline != nil:
		day := model.Day(*p.Deadline)
		t.Deadline = &day
	}
}
