package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/store"
	"github.com/nhle/tech-tracker/internal/tracker"
	"github.com/nhle/tech-tracker/internal/transfer"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import technologies from a JSON export or a CSV file",
	Long: `Reads a JSON export (an envelope with a "technologies" array, or a bare array)
or a .csv file. By default the collection is replaced; --merge updates records
with matching ids and appends the rest. Use "-" to read JSON from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the collection as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Roll the collection back to the previous saved version",
	Long: `Every save keeps the value it replaced as a backup. restore moves the newest
backup back into place; run it repeatedly to step further back.`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

func runImport(cmd *cobra.Command, args []string) error {
	merge, _ := cmd.Flags().GetBool("merge")
	path := args[0]

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	return withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
		var n int
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			items, err := transfer.ImportCSV(bytes.NewReader(data), s.Now())
			if err != nil {
				return err
			}
			if merge {
				n, err = s.ImportMerge(ctx, items)
			} else {
				n, err = s.ImportReplace(ctx, items)
			}
			if err != nil {
				return err
			}
		} else {
			n, err = s.Import(ctx, data, merge)
			if err != nil {
				return err
			}
		}

		verb := "Imported"
		if merge {
			verb = "Merged"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d technologies (%d tracked)\n", verb, n, s.Len())
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	format, _ := f.GetString("format")
	out, _ := f.GetString("out")
	tmpl, _ := f.GetBool("template")

	var data []byte
	if tmpl {
		data = transfer.Template()
	} else {
		err := withTracker(cmd, func(ctx context.Context, s *tracker.Store) error {
			var err error
			switch strings.ToLower(format) {
			case "json":
				data, err = transfer.ExportJSON(s.All(), s.Now())
			case "csv":
				data = transfer.ExportCSV(s.All())
			default:
				err = fmt.Errorf("format %q: %w", format, model.ErrInvalidValue)
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	if out == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	slot, err := openSlot()
	if err != nil {
		return err
	}
	defer slot.Close()

	if list {
		backups, err := slot.Backups(ctx, cfg.Storage.Key)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backups yet.")
			return nil
		}
		for _, b := range backups {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", b.CreatedAt.Local().Format("2006-01-02 15:04:05"), describeBackup(b))
		}
		return nil
	}

	b, err := slot.Restore(ctx, cfg.Storage.Key)
	if errors.Is(err, store.ErrSlotEmpty) {
		return fmt.Errorf("nothing to restore: no backups of %s", cfg.Storage.Key)
	}
	if err != nil {
		return err
	}
	logger.Info("slot restored from backup")
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s saved at %s\n", describeBackup(b), b.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func describeBackup(b store.Backup) string {
	items, err := transfer.Decode([]byte(b.Value))
	if err != nil {
		return "unreadable backup"
	}
	return fmt.Sprintf("%d technologies", len(items))
}
