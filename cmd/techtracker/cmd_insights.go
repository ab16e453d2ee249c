package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/credential"
	"github.com/nhle/tech-tracker/internal/lookup"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/stats"
	"github.com/nhle/tech-tracker/internal/tracker"
)

// tokenEnv overrides the stored lookup token.
const tokenEnv = "TECHTRACKER_LOOKUP_TOKEN"

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show progress statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List unfinished technologies whose deadline has passed",
	Args:  cobra.NoArgs,
	RunE:  runOverdue,
}

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search title, description, category, notes and tags",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [query]",
	Short: "Find popular repositories to start tracking",
	Long: `Searches public repositories by stars. When the search fails or finds
nothing, a built-in list of popular technologies is shown instead.
Pass --import N to track the Nth result.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

// openVault is replaced in tests.
var openVault = func() (*credential.Vault, error) {
	return credential.Open(model.ConfigDir())
}

func runStats(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		st := s.Stats()
		if asJSON {
			data, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		printStats(cmd, st)
		return nil
	})
}

func printStats(cmd *cobra.Command, st stats.Stats) {
	w := cmd.OutOrStdout()
	if st.Total == 0 {
		fmt.Fprintln(w, "Nothing tracked yet.")
		return
	}
	fmt.Fprintf(w, "Progress:     %d%% (%d of %d completed)\n", st.Progress, st.Completed, st.Total)
	fmt.Fprintf(w, "In progress:  %d\n", st.InProgress)
	fmt.Fprintf(w, "Not started:  %d\n", st.NotStarted)
	fmt.Fprintf(w, "Overdue:      %d\n", st.Overdue)
	fmt.Fprintf(w, "Hours:        %d of %d estimated\n", st.CompletedEstimatedHours, st.TotalEstimatedHours)
	fmt.Fprintf(w, "Top category: %s\n", st.MostPopularCategory)

	fmt.Fprintln(w, "\nBy category:")
	for _, c := range model.Categories {
		if n := st.ByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", c, n)
		}
	}
	fmt.Fprintln(w, "By difficulty:")
	for _, d := range model.Difficulties {
		if n := st.ByDifficulty[d]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", d, n)
		}
	}
}

func runOverdue(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		printTable(cmd.OutOrStdout(), s.Overdue(), s.Now())
		return nil
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		printTable(cmd.OutOrStdout(), s.Search(args[0]), s.Now())
		return nil
	})
}

func runLookup(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	limit, _ := f.GetInt("limit")
	if limit <= 0 {
		limit = cfg.Lookup.Limit
	}
	pick, _ := f.GetInt("import")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	candidates := lookup.SearchOrEmpty(ctx, newSearcher(), args[0], limit, logger)
	if len(candidates) == 0 {
		candidates = lookup.Popular(args[0], limit)
		if len(candidates) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Search unavailable or empty; showing built-in suggestions.")
	}
	printCandidates(cmd.OutOrStdout(), candidates)

	if pick == 0 {
		return nil
	}
	if pick < 0 || pick > len(candidates) {
		return fmt.Errorf("--import %d: pick a result between 1 and %d", pick, len(candidates))
	}
	c := candidates[pick-1]
	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		t, err := s.Create(ctx, c.Draft(), false)
		if t.ID == "" {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Now tracking %q (%s)\n", t.Title, t.ID)
		return err
	})
}

// newSearcher builds the repository client, or returns nil when lookup is
// switched off by an empty base URL.
func newSearcher() lookup.Searcher {
	if strings.TrimSpace(cfg.Lookup.BaseURL) == "" {
		return nil
	}
	c := lookup.NewClient(cfg.Lookup.BaseURL, lookupToken(), time.Duration(cfg.Lookup.TimeoutSec)*time.Second, logger)
	c.SetLanguage(cfg.Lookup.Language)
	return c
}

// lookupToken prefers the environment over the keyring. A missing token is
// fine; requests are then anonymous.
func lookupToken() string {
	if token := strings.TrimSpace(os.Getenv(tokenEnv)); token != "" {
		return token
	}
	vault, err := openVault()
	if err != nil {
		logger.Debug("keyring unavailable", zap.Error(err))
		return ""
	}
	token, err := vault.LookupToken()
	if err != nil {
		logger.Debug("no lookup token", zap.Error(err))
		return ""
	}
	return token
}
