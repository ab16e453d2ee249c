package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/logging"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/store"
	"github.com/nhle/tech-tracker/internal/tracker"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *model.AppConfig
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "techtracker",
	Short: "Track the technologies you are learning",
	Long: `techtracker keeps a list of technologies you want to learn, are learning,
or have learned, with notes, deadlines and progress statistics.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = model.LoadConfig(cfgPath)
		if err != nil {
			return err
		}

		logger, err = logging.New(logging.Options{
			Level:   cfg.Log.Level,
			JSON:    cfg.Log.JSON,
			File:    cfg.Log.File,
			Verbose: verbose,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("config loaded", zap.String("path", cfgPath), zap.String("storage", cfg.Storage.Path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", model.DefaultConfigPath(), "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	addRecordFlags(addCmd)
	addRecordFlags(editCmd)
	addListFlags(listCmd)
	statusCmd.Flags().Bool("next", false, "Advance to the next status instead of setting one")
	for _, c := range []*cobra.Command{clearCmd, completeAllCmd, resetAllCmd} {
		c.Flags().Bool("yes", false, "Skip the confirmation prompt")
	}
	importCmd.Flags().Bool("merge", false, "Merge into the collection instead of replacing it")
	exportCmd.Flags().String("format", "json", "Output format: json or csv")
	exportCmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")
	exportCmd.Flags().Bool("template", false, "Write an example import file instead of the collection")
	statsCmd.Flags().Bool("json", false, "Print the statistics as JSON")
	lookupCmd.Flags().Int("limit", 0, "Maximum number of results (default from config)")
	lookupCmd.Flags().Int("import", 0, "Track the Nth result")
	restoreCmd.Flags().Bool("list", false, "List backups instead of restoring")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	tokenCmd.AddCommand(tokenSetCmd, tokenDeleteCmd, tokenStatusCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(
		addCmd, listCmd, showCmd, statusCmd, notesCmd, editCmd, deleteCmd,
		clearCmd, completeAllCmd, resetAllCmd,
		importCmd, exportCmd, restoreCmd,
		statsCmd, overdueCmd, searchCmd, lookupCmd,
		tokenCmd, configCmd, tuiCmd,
	)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the root command with args and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// openTracker opens the configured database and loads the collection. The
// returned slot must be closed by the caller.
func openTracker(ctx context.Context) (*tracker.Store, *store.SQLiteSlot, error) {
	slot, err := openSlot()
	if err != nil {
		return nil, nil, err
	}

	opts := []tracker.Option{tracker.WithKey(cfg.Storage.Key), tracker.WithLogger(logger)}
	if cfg.Storage.Seed {
		opts = append(opts, tracker.WithSeed(tracker.StarterSet()))
	}
	return tracker.New(ctx, store.NewAdapter(slot, logger), opts...), slot, nil
}

func openSlot() (*store.SQLiteSlot, error) {
	path := cfg.Storage.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return store.NewSQLiteSlot(path)
}

// withTracker runs fn against a freshly loaded collection and closes the
// database afterwards.
func withTracker(cmd *cobra.Command, fn func(ctx context.Context, s *tracker.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, slot, err := openTracker(ctx)
	if err != nil {
		return err
	}
	defer slot.Close()

	return fn(ctx, s)
}
