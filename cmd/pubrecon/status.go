// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubrecon/internal/checkpoint"
	"github.com/pdiddy/pubrecon/internal/report"
	"github.com/pdiddy/pubrecon/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the progress of the current or last run",
	Long: `Status prints the run summary and, when a checkpoint exists, where an
interrupted run will resume.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		store, err := checkpoint.Open(cfg.Checkpoint)
		if err != nil {
			return err
		}
		defer store.Close()
		return printStatus(cmd.Context(), cmd.OutOrStdout(), cfg, store)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the checkpoint so the next run starts fresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		store, err := checkpoint.Open(cfg.Checkpoint)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Reset(cmd.Context()); err != nil {
			return fmt.Errorf("resetting checkpoint: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint %s cleared\n", cfg.Checkpoint.Path)
		return nil
	},
}

func printStatus(ctx context.Context, w io.Writer, cfg types.Config, store checkpoint.Store) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sum, err := report.ReadSummary(cfg.Summary)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(w, "No summary at %s\n", cfg.Summary)
	case err != nil:
		return err
	default:
		state := "in progress"
		if sum.Complete {
			state = "complete"
		}
		pct := 0.0
		if sum.TotalJobs > 0 {
			pct = 100 * float64(sum.Index) / float64(sum.TotalJobs)
		}
		fmt.Fprintf(w, "Status:  %s\n", state)
		fmt.Fprintf(w, "Roster:  %s researchers\n", humanize.Comma(int64(sum.TotalUsers)))
		fmt.Fprintf(w, "Jobs:    %s / %s (%.0f%%)\n",
			humanize.Comma(int64(sum.Index)), humanize.Comma(int64(sum.TotalJobs)), pct)
		for _, src := range []types.Source{types.SourceRegistry, types.SourceAggregator} {
			p, ok := sum.Sources[src]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %-10s %s / %s\n", strings.ToLower(string(src)),
				humanize.Comma(int64(p.Index)), humanize.Comma(int64(p.Total)))
		}
		fmt.Fprintf(w, "Records: %s\n", humanize.Comma(int64(sum.ProcessedRecords)))
		fmt.Fprintf(w, "Errors:  %s\n", humanize.Comma(int64(sum.Errors)))
	}

	cp, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading checkpoint: %w", err)
	}
	switch {
	case cp == nil:
		fmt.Fprintln(w, "No checkpoint")
	case cp.State.IsComplete:
		fmt.Fprintf(w, "Last run %s finished %s\n", cp.RunID, humanize.Time(cp.UpdatedAt))
	default:
		fmt.Fprintf(w, "Run %s resumes at job %d of %d (saved %s)\n",
			cp.RunID, cp.Cursor+1, cp.State.TotalCount, humanize.Time(cp.UpdatedAt))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
}
