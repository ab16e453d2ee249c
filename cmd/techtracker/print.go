package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/nhle/tech-tracker/internal/lookup"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/ui/detail"
)

// shortIDLen is how much of a generated id the tables show.
const shortIDLen = 8

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func printTable(w io.Writer, items []model.Technology, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No technologies found.")
		return
	}

	rows := make([][]string, 0, len(items))
	for _, t := range items {
		deadline := ""
		if t.Deadline != nil {
			deadline = t.Deadline.Format(model.DateLayout)
			if t.IsOverdue(now) {
				deadline += " !"
			}
		}
		rows = append(rows, []string{
			shortID(t.ID),
			t.Title,
			t.Status.Label(),
			string(t.Category),
			string(t.Difficulty),
			string(t.Priority),
			strconv.Itoa(t.EstimatedHours),
			deadline,
			strings.Join(t.Tags, ","),
		})
	}

	fmt.Fprintln(w, newTable().
		Headers("ID", "TITLE", "STATUS", "CATEGORY", "DIFFICULTY", "PRIORITY", "HOURS", "DEADLINE", "TAGS").
		Rows(rows...).
		String())
	fmt.Fprintf(w, "%d technologies\n", len(items))
}

func printCandidates(w io.Writer, candidates []lookup.Candidate) {
	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.Name,
			string(c.Category),
			c.Language,
			strconv.Itoa(c.Stars),
			truncate(c.Description, 60),
		})
	}
	fmt.Fprintln(w, newTable().
		Headers("#", "NAME", "CATEGORY", "LANGUAGE", "STARS", "DESCRIPTION").
		Rows(rows...).
		String())
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// printDetail writes a record as markdown, rendered with glamour when w is
// a terminal.
func printDetail(w io.Writer, t model.Technology, similar []model.Technology, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "`%s` · **%s** · %s · %s priority", t.ID, t.Status.Label(), t.Category, t.Priority)
	if t.IsOverdue(now) {
		b.WriteString(" · **OVERDUE**")
	}
	b.WriteString("\n\n")
	b.WriteString(detail.Markdown(t, similar))

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, b.String())
		return err
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(min(width, 100))}
	if style := cfg.Display.Theme; style != "" && style != "auto" {
		opts = append(opts, glamour.WithStandardStyle(style))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return err
	}
	out, err := r.Render(b.String())
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func shortID(id model.ID) string {
	s := string(id)
	if len(s) > shortIDLen {
		return s[:shortIDLen]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
