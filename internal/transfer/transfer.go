// Package transfer converts technology collections to and from their
// external representations: the canonical JSON envelope, bare JSON arrays
// and CSV.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sj "github.com/bitly/go-simplejson"

	"github.com/nhle/tech-tracker/internal/model"
)

// FormatVersion is written into every envelope.
const FormatVersion = "1.0"

// Envelope is the canonical on-disk and export shape.
type Envelope struct {
	Version           string             `json:"version"`
	ExportedAt        *time.Time         `json:"exportedAt,omitempty"`
	TotalTechnologies *int               `json:"totalTechnologies,omitempty"`
	Technologies      []model.Technology `json:"technologies"`
}

// Encode serializes items in the compact canonical envelope used for the
// durable slot.
func Encode(items []model.Technology) ([]byte, error) {
	if items == nil {
		items = []model.Technology{}
	}
	data, err := json.Marshal(Envelope{Version: FormatVersion, Technologies: items})
	if err != nil {
		return nil, fmt.Errorf("encoding technologies: %w", err)
	}
	return data, nil
}

// ExportJSON serializes items as a pretty-printed envelope stamped with now.
func ExportJSON(items []model.Technology, now time.Time) ([]byte, error) {
	if items == nil {
		items = []model.Technology{}
	}
	total := len(items)
	exported := now.UTC()
	data, err := json.MarshalIndent(Envelope{
		Version:           FormatVersion,
		ExportedAt:        &exported,
		TotalTechnologies: &total,
		Technologies:      items,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exporting technologies: %w", err)
	}
	return append(data, '\n'), nil
}

// record is the lenient wire form of a technology. Dates arrive as strings in
// several layouts and ids as strings or numbers.
type record struct {
	ID             model.ID `json:"id"`
	Title          *string  `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Difficulty     string   `json:"difficulty"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	Tags           []string `json:"tags"`
	Notes          string   `json:"notes"`
	EstimatedHours *int     `json:"estimatedHours"`
	Deadline       string   `json:"deadline"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

// Decode parses either the canonical envelope or a bare array of records.
// Anything else fails with model.ErrInvalidFormat. Fields are copied as
// given; unknown enum values survive decoding so that the caller decides how
// to normalize them. Missing fields stay zero.
func Decode(data []byte) ([]model.Technology, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty payload: %w", model.ErrInvalidFormat)
	}

	js, err := sj.NewJson(data)
	if err != nil {
		return nil, fmt.Errorf("parsing payload: %v: %w", err, model.ErrInvalidFormat)
	}

	list := js
	if _, err := js.Array(); err != nil {
		inner, ok := js.CheckGet("technologies")
		if !ok {
			return nil, fmt.Errorf("missing technologies array: %w", model.ErrInvalidFormat)
		}
		list = inner
	}
	entries, err := list.Array()
	if err != nil {
		return nil, fmt.Errorf("technologies is not an array: %w", model.ErrInvalidFormat)
	}

	items := make([]model.Technology, 0, len(entries))
	for i := range entries {
		entry := list.GetIndex(i)
		if _, err := entry.Map(); err != nil {
			return nil, fmt.Errorf("technology #%d is not an object: %w", i+1, model.ErrInvalidFormat)
		}
		raw, err := entry.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("technology #%d: %v: %w", i+1, err, model.ErrInvalidFormat)
		}
		t, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("technology #%d: %v: %w", i+1, err, model.ErrInvalidFormat)
		}
		items = append(items, t)
	}
	return items, nil
}

func decodeRecord(raw []byte) (model.Technology, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.Technology{}, err
	}
	if r.Title == nil {
		return model.Technology{}, fmt.Errorf("entry has no title")
	}

	t := model.Technology{
		ID:          r.ID,
		Title:       *r.Title,
		Description: r.Description,
		Category:    model.Category(strings.ToLower(strings.TrimSpace(r.Category))),
		Difficulty:  model.Difficulty(strings.ToLower(strings.TrimSpace(r.Difficulty))),
		Status:      model.Status(strings.ToLower(strings.TrimSpace(r.Status))),
		Priority:    model.Priority(strings.ToLower(strings.TrimSpace(r.Priority))),
		Tags:        model.NormalizeTags(r.Tags),
		Notes:       r.Notes,
	}
	if r.EstimatedHours != nil {
		t.EstimatedHours = *r.EstimatedHours
	}

	var err error
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return model.Technology{}, fmt.Errorf("createdAt: %w", err)
	}
	if t.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return model.Technology{}, fmt.Errorf("updatedAt: %w", err)
	}
	if r.Deadline != "" {
		d, err := parseTime(r.Deadline)
		if err != nil {
			return model.Technology{}, fmt.Errorf("deadline: %w", err)
		}
		day := model.Day(d)
		t.Deadline = &day
	}

	return t, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	model.DateLayout,
}

// parseTime accepts the layouts seen in exports; an empty string is the zero
// time.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
