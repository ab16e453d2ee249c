package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/app"
	appsync "github.com/nhle/tech-tracker/internal/sync"
	"github.com/nhle/tech-tracker/internal/tracker"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive interface (default)",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, slot, err := openTracker(ctx)
	if err != nil {
		return err
	}
	defer slot.Close()

	watcher, err := appsync.New(slot.Path(), s, appsync.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("watching %s: %w", slot.Path(), err)
	}
	defer watcher.Stop()

	sortBy, err := tracker.ParseSortField(cfg.Display.SortBy)
	if err != nil {
		logger.Warn("unknown sort field in config, using createdAt", zap.String("sort_by", cfg.Display.SortBy))
		sortBy = tracker.SortCreatedAt
	}

	m := app.New(app.Options{
		Store:        s,
		Watcher:      watcher,
		Searcher:     newSearcher(),
		LookupLimit:  cfg.Lookup.Limit,
		GlamourStyle: cfg.Display.Theme,
		SortBy:       sortBy,
		SortDesc:     cfg.Display.SortDesc,
		Logger:       logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
