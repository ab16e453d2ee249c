package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/tracker"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Track a new technology",
	Example: `  techtracker add "Docker" --category devops --difficulty intermediate \
    --description "Containers and images" --tags containers,ops --deadline 2025-06-01`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked technologies",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one technology with its notes and similar entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var statusCmd = &cobra.Command{
	Use:   "status [id] [status]",
	Short: "Set the learning status (not-started, in-progress, completed)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runStatus,
}

var notesCmd = &cobra.Command{
	Use:   "notes [id] [text]",
	Short: "Replace the notes of a technology; an empty text clears them",
	Args:  cobra.ExactArgs(2),
	RunE:  runNotes,
}

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change fields of a technology",
	Long: `Only the flags you pass are changed. Pass --deadline "" to clear a deadline
and --tags "" to drop all tags.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var deleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Stop tracking a technology",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every tracked technology",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var completeAllCmd = &cobra.Command{
	Use:   "complete-all",
	Short: "Mark every technology as completed",
	Args:  cobra.NoArgs,
	RunE:  runCompleteAll,
}

var resetAllCmd = &cobra.Command{
	Use:   "reset-all",
	Short: "Mark every technology as not started",
	Args:  cobra.NoArgs,
	RunE:  runResetAll,
}

// oneOf renders values as "a, b or c" for flag help.
func oneOf[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

// addRecordFlags registers the field flags shared by add and edit.
func addRecordFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("title", "", "Title")
	f.StringP("description", "d", "", "Description")
	f.String("category", "", oneOf(model.Categories))
	f.String("difficulty", "", oneOf(model.Difficulties))
	f.String("status", "", oneOf(model.Statuses))
	f.StringP("priority", "p", "", oneOf(model.Priorities))
	f.StringSlice("tags", nil, "Comma separated tags")
	f.String("notes", "", "Free-form notes")
	f.Int("hours", 0, "Estimated hours")
	f.String("deadline", "", "Deadline as YYYY-MM-DD")
}

func addListFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("status", "", "Only this status")
	f.String("category", "", "Only this category")
	f.String("difficulty", "", "Only this difficulty")
	f.String("priority", "", "Only this priority")
	f.String("tag", "", "Only records carrying this tag")
	f.StringP("query", "q", "", "Text search over title, description, category, notes and tags")
	f.String("sort", "", "Sort field, e.g. title, createdAt, deadline")
	f.Bool("desc", false, "Sort descending")
	f.Bool("overdue", false, "Only overdue records")
}

func runAdd(cmd *cobra.Command, args []string) error {
	d, err := draftFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		t, err := s.Create(ctx, d, true)
		if err != nil && t.ID == "" {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s)\n", t.Title, t.ID)
		return err
	})
}

func runList(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	filter := tracker.Filter{}
	filter.Status, _ = f.GetString("status")
	filter.Category, _ = f.GetString("category")
	filter.Difficulty, _ = f.GetString("difficulty")
	filter.Priority, _ = f.GetString("priority")
	filter.Tag, _ = f.GetString("tag")
	filter.Query, _ = f.GetString("query")
	filter.OnlyOverdue, _ = f.GetBool("overdue")

	if sortBy, _ := f.GetString("sort"); sortBy != "" {
		field, err := tracker.ParseSortField(sortBy)
		if err != nil {
			return err
		}
		filter.SortBy = field
		filter.Dir = tracker.Asc
	}
	if desc, _ := f.GetBool("desc"); desc {
		filter.Dir = tracker.Desc
		if filter.SortBy == "" {
			filter.SortBy = tracker.SortCreatedAt
		}
	}

	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		items, err := s.Query(filter)
		if err != nil {
			return err
		}
		printTable(cmd.OutOrStdout(), items, s.Now())
		return nil
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		id, err := resolveID(s, args[0])
		if err != nil {
			return err
		}
		t, err := s.Get(id)
		if err != nil {
			return err
		}
		similar, err := s.Similar(id, 5)
		if err != nil {
			return err
		}
		return printDetail(cmd.OutOrStdout(), t, similar, s.Now())
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	next, _ := cmd.Flags().GetBool("next")
	if len(args) == 1 && !next {
		return fmt.Errorf("pass a status or --next")
	}

	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		id, err := resolveID(s, args[0])
		if err != nil {
			return err
		}

		var t model.Technology
		if len(args) == 2 {
			status, perr := model.ParseStatus(args[1])
			if perr != nil {
				return perr
			}
			t, err = s.UpdateStatus(ctx, id, status)
		} else {
			t, err = s.AdvanceStatus(ctx, id)
		}
		if t.ID == "" {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%q is now %s\n", t.Title, t.Status.Label())
		return err
	})
}

func runNotes(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		id, err := resolveID(s, args[0])
		if err != nil {
			return err
		}
		t, err := s.UpdateNotes(ctx, id, args[1])
		if t.ID == "" {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved notes for %q\n", t.Title)
		return err
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	p, err := patchFromFlags(cmd)
	if err != nil {
		return err
	}
	if p.IsEmpty() {
		return fmt.Errorf("nothing to change: pass at least one field flag")
	}

	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		id, err := resolveID(s, args[0])
		if err != nil {
			return err
		}
		t, err := s.Edit(ctx, id, p, true)
		if t.ID == "" {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", t.Title)
		return err
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		id, err := resolveID(s, args[0])
		if err != nil {
			return err
		}
		t, err := s.Get(id)
		if err != nil {
			return err
		}
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", t.Title)
		return nil
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	return bulk(cmd, "Delete every tracked technology", "Cleared the collection",
		func(ctx context.Context, s *tracker.Store) error { return s.DeleteAll(ctx) })
}

func runCompleteAll(cmd *cobra.Command, args []string) error {
	return bulk(cmd, "Mark every technology as completed", "Marked everything completed",
		func(ctx context.Context, s *tracker.Store) error { return s.MarkAllCompleted(ctx) })
}

func runResetAll(cmd *cobra.Command, args []string) error {
	return bulk(cmd, "Reset every technology to not started", "Reset everything to not started",
		func(ctx context.Context, s *tracker.Store) error { return s.ResetAll(ctx) })
}

// bulk confirms a collection-wide change before applying it.
func bulk(cmd *cobra.Command, question, done string, apply func(context.Context, *tracker.Store) error) error {
	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd, fmt.Sprintf("%s (%d records)?", question, s.Len())) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		if err := apply(ctx, s); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), done)
		return nil
	})
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// resolveID accepts a full id or an unambiguous id prefix.
func resolveID(s *tracker.Store, arg string) (model.ID, error) {
	arg = strings.TrimSpace(arg)
	if _, err := s.Get(model.ID(arg)); err == nil {
		return model.ID(arg), nil
	}

	var found []model.ID
	for _, t := range s.All() {
		if arg != "" && strings.HasPrefix(string(t.ID), arg) {
			found = append(found, t.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("technology %s: %w", arg, model.ErrNotFound)
	case 1:
		return found[0], nil
	}
	return "", fmt.Errorf("id prefix %q matches %d technologies", arg, len(found))
}

func draftFromFlags(cmd *cobra.Command, title string) (model.Draft, error) {
	f := cmd.Flags()
	d := model.Draft{Title: title}
	d.Description, _ = f.GetString("description")
	d.Notes, _ = f.GetString("notes")
	d.Tags, _ = f.GetStringSlice("tags")
	d.EstimatedHours, _ = f.GetInt("hours")

	var err error
	if v, _ := f.GetString("category"); v != "" {
		if d.Category, err = model.ParseCategory(v); err != nil {
			return d, err
		}
	}
	if v, _ := f.GetString("difficulty"); v != "" {
		if d.Difficulty, err = model.ParseDifficulty(v); err != nil {
			return d, err
		}
	}
	if v, _ := f.GetString("status"); v != "" {
		if d.Status, err = model.ParseStatus(v); err != nil {
			return d, err
		}
	}
	if v, _ := f.GetString("priority"); v != "" {
		if d.Priority, err = model.ParsePriority(v); err != nil {
			return d, err
		}
	}
	if v, _ := f.GetString("deadline"); v != "" {
		day, perr := model.ParseDay(v)
		if perr != nil {
			return d, fmt.Errorf("deadline %q: %w", v, model.ErrInvalidValue)
		}
		d.Deadline = &day
	}
	return d, nil
}

// patchFromFlags builds a patch from the flags that were set explicitly.
func patchFromFlags(cmd *cobra.Command) (model.Patch, error) {
	f := cmd.Flags()
	var p model.Patch

	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	p.Title = str("title")
	p.Description = str("description")
	p.Notes = str("notes")

	if f.Changed("hours") {
		h, _ := f.GetInt("hours")
		p.EstimatedHours = &h
	}
	if f.Changed("tags") {
		tags, _ := f.GetStringSlice("tags")
		if tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	if v := str("category"); v != nil {
		c, err := model.ParseCategory(*v)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}
	if v := str("difficulty"); v != nil {
		d, err := model.ParseDifficulty(*v)
		if err != nil {
			return p, err
		}
		p.Difficulty = &d
	}
	if v := str("status"); v != nil {
		s, err := model.ParseStatus(*v)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if v := str("priority"); v != nil {
		pr, err := model.ParsePriority(*v)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if v := str("deadline"); v != nil {
		if strings.TrimSpace(*v) == "" {
			p.ClearDeadline = true
		} else {
			day, err := model.ParseDay(*v)
			if err != nil {
				return p, fmt.Errorf("deadline %q: %w", *v, model.ErrInvalidValue)
			}
			p.Deadline = &day
		}
	}
	return p, nil
}
