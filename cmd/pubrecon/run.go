// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubrecon/internal/checkpoint"
	"github.com/pdiddy/pubrecon/internal/logging"
	"github.com/pdiddy/pubrecon/internal/match"
	"github.com/pdiddy/pubrecon/internal/metrics"
	"github.com/pdiddy/pubrecon/internal/normalize"
	"github.com/pdiddy/pubrecon/internal/openalex"
	"github.com/pdiddy/pubrecon/internal/orcid"
	"github.com/pdiddy/pubrecon/internal/reconcile"
	"github.com/pdiddy/pubrecon/internal/roster"
	"github.com/pdiddy/pubrecon/internal/scholar"
	"github.com/pdiddy/pubrecon/internal/secrets"
	"github.com/pdiddy/pubrecon/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile the roster's publications into the report",
	Long: `Run fetches every researcher's works from the ORCID registry, then from the
configured aggregator, and writes the deduplicated records to the report.

A run interrupted by Ctrl-C, a write failure, or rejected credentials
leaves a checkpoint behind; running again with the same roster resumes
from it. Exit status is 1 on failure and 130 after an interrupt.

Requests refused with HTTP 429 are retried with backoff up to the
configured registry.rate_limit_retries and aggregator.rate_limit_retries
times (default 2). Pass --retries 0 to record them as failures at once;
timeouts are never retried.`,
	RunE: runReconcile,
}

func init() {
	d := types.DefaultConfig()
	runCmd.Flags().String("input", d.Input, "roster file (CSV or YAML)")
	runCmd.Flags().String("output", d.Output, "report CSV path")
	runCmd.Flags().String("summary", d.Summary, "run summary JSON path")
	runCmd.Flags().String("metrics-file", "", "write Prometheus text-format metrics to this path")
	runCmd.Flags().Int("concurrency", d.Concurrency, "researchers fetched in parallel")
	runCmd.Flags().String("aggregator", string(d.Aggregator.Backend), "aggregator backend: scholar, openalex, or none")
	runCmd.Flags().Bool("fresh", false, "discard any checkpoint and start over")
	runCmd.Flags().Int("retries", -1, "HTTP 429 retries per request for every source (-1 keeps the configured values)")
	runCmd.Flags().Bool("split", d.SplitBySource, "also write one report per source beside the output")

	for key, flag := range map[string]string{
		"input":              "input",
		"output":             "output",
		"summary":            "summary",
		"metrics_file":       "metrics-file",
		"concurrency":        "concurrency",
		"aggregator.backend": "aggregator",
		"split_by_source":    "split",
	} {
		_ = viper.BindPFlag(key, runCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	fresh, _ := cmd.Flags().GetBool("fresh")
	if n, _ := cmd.Flags().GetInt("retries"); n >= 0 {
		cfg = withRetries(cfg, n)
	}
	out := cmd.OutOrStdout()
	start := time.Now()

	logger, closer, err := logging.Setup(cfg.Log, cmd.ErrOrStderr(), start)
	if err != nil {
		return err
	}
	defer closer.Close()
	zlog.Logger = logger

	if err := secrets.LoadEnvFile(cfg.EnvFile); err != nil {
		return err
	}
	creds, err := secrets.ORCID(cfg.SecretsDir)
	if err != nil {
		return err
	}
	cfg.Registry.ClientID = creds.ClientID
	cfg.Registry.ClientSecret = creds.ClientSecret
	if cfg.Aggregator.Email == "" {
		if files, err := secrets.Load(cfg.SecretsDir); err == nil {
			cfg.Aggregator.Email = files[secrets.KeyOpenAlexMail]
		}
	}

	researchers, err := roster.Load(cfg.Input, logger)
	if err != nil {
		return err
	}
	matcher, err := match.New(cfg.Match)
	if err != nil {
		return err
	}
	store, err := checkpoint.Open(cfg.Checkpoint)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	engine, err := reconcile.New(reconcile.Options{
		Registry:      reconcile.Source{Fetcher: orcid.New(cfg.Registry), Schema: normalize.ORCIDSchema},
		Aggregator:    aggregatorSource(cfg.Aggregator),
		Store:         store,
		Matcher:       matcher,
		ReportPath:    cfg.Output,
		SummaryPath:   cfg.Summary,
		SplitBySource: cfg.SplitBySource,
		Concurrency:   cfg.Concurrency,
		Fresh:         fresh,
		Logger:        logger,
		Observer:      m,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Reconciling %s researchers from %s (aggregator: %s)\n",
		humanize.Comma(int64(len(researchers))), cfg.Input, cfg.Aggregator.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := engine.Run(ctx, researchers)
	if res.RunID != "" {
		m.RunStarted(res.RunID, start)
	}
	writeMetrics(cfg.MetricsFile, m, logger)
	printResult(out, res, cfg, time.Since(start))

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintln(out, "Interrupted; progress saved. Run again to resume.")
		return &exitError{code: exitInterrupted, err: runErr}
	case errors.Is(runErr, reconcile.ErrAborted):
		fmt.Fprintln(out, "Aborted: credentials rejected. Fix them and run again to resume.")
		return runErr
	case errors.Is(runErr, reconcile.ErrPlanMismatch):
		return fmt.Errorf("%w (use --fresh or 'pubrecon reset')", runErr)
	default:
		return runErr
	}
}

// withRetries sets the HTTP 429 retry budget of every source to n.
func withRetries(cfg types.Config, n int) types.Config {
	cfg.Registry.RateLimitRetries = n
	cfg.Aggregator.RateLimitRetries = n
	return cfg
}

// aggregatorSource builds the configured aggregator. A zero Source means none.
func aggregatorSource(cfg types.AggregatorConfig) reconcile.Source {
	switch cfg.Backend {
	case types.AggregatorScholar:
		return reconcile.Source{Fetcher: scholar.New(cfg), Schema: normalize.ScholarSchema}
	case types.AggregatorOpenAlex:
		return reconcile.Source{Fetcher: openalex.New(cfg), Schema: normalize.OpenAlexSchema}
	default:
		return reconcile.Source{}
	}
}

func writeMetrics(path string, m *metrics.Metrics, log zerolog.Logger) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		log.Error().Err(err).Msg("metrics write failed")
	}
}

func printResult(w io.Writer, res reconcile.Result, cfg types.Config, elapsed time.Duration) {
	if res.RunID == "" {
		return
	}
	s := res.State
	fmt.Fprintf(w, "Run %s: %s of %s jobs, %s records, %s errors in %s\n",
		res.RunID,
		humanize.Comma(int64(s.CompletedCount)),
		humanize.Comma(int64(s.TotalCount)),
		humanize.Comma(int64(len(res.Records))),
		humanize.Comma(int64(s.ErrorCount)),
		elapsed.Round(time.Second))
	if s.IsComplete {
		fmt.Fprintf(w, "Report: %s\nSummary: %s\n", cfg.Output, cfg.Summary)
	}
}
