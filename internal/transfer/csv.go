package transfer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nhle/tech-tracker/internal/model"
)

// CSVHeader is the fixed column order of CSV exports and imports.
var CSVHeader = []string{"title", "description", "category", "difficulty", "status", "createdAt"}

// ExportCSV writes a header row plus one row per item. Every value is quoted
// and embedded quotes are doubled.
func ExportCSV(items []model.Technology) []byte {
	var buf bytes.Buffer
	writeCSVRow(&buf, CSVHeader)
	for _, t := range items {
		writeCSVRow(&buf, []string{
			t.Title,
			t.Description,
			string(t.Category),
			string(t.Difficulty),
			string(t.Status),
			t.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return buf.Bytes()
}

func writeCSVRow(buf *bytes.Buffer, values []string) {
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(v, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

// ImportCSV reads rows in CSVHeader order. The first row is treated as a
// header and skipped; blank rows are ignored. Missing cells fall back to the
// record defaults and a missing createdAt becomes now.
func ImportCSV(r io.Reader, now time.Time) ([]model.Technology, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var items []model.Technology
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %v: %w", err, model.ErrInvalidFormat)
		}
		line++
		if line == 1 || blankRow(row) {
			continue
		}

		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		t := model.Technology{
			Title:       cell(0),
			Description: cell(1),
			Category:    model.Category(strings.ToLower(orDefault(cell(2), string(model.DefaultCategory)))),
			Difficulty:  model.Difficulty(strings.ToLower(orDefault(cell(3), string(model.DefaultDifficulty)))),
			Status:      model.Status(strings.ToLower(orDefault(cell(4), string(model.DefaultStatus)))),
		}
		created, err := parseTime(cell(5))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: createdAt: %v: %w", line, err, model.ErrInvalidFormat)
		}
		if created.IsZero() {
			created = now
		}
		t.CreatedAt = created
		items = append(items, t)
	}

	if items == nil {
		items = []model.Technology{}
	}
	return items, nil
}

// Template returns a minimal envelope showing the accepted import shape.
func Template() []byte {
	return []byte(`{
  "technologies": [
    {
      "title": "Example technology",
      "description": "What this technology is about",
      "category": "frontend",
      "difficulty": "beginner",
      "status": "not-started"
    }
  ]
}
`)
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
