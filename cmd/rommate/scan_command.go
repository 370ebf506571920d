package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rommate/internal/config"
	"rommate/internal/history"
	"rommate/internal/logging"
	"rommate/internal/preflight"
	"rommate/internal/runlock"
	"rommate/internal/scan"
	"rommate/internal/services"
	"rommate/internal/verify"
)

type scanReport struct {
	ScanID     string                `json:"scan_id,omitempty"`
	Root       string                `json:"root"`
	Candidates int                   `json:"candidates"`
	Excluded   []string              `json:"excluded_tracks,omitempty"`
	Processed  int                   `json:"processed"`
	Verified   int                   `json:"verified"`
	Attention  int                   `json:"attention"`
	Failed     int                   `json:"failed"`
	Canceled   bool                  `json:"canceled"`
	Duration   string                `json:"duration"`
	Counts     map[verify.Status]int `json:"counts"`
	Results    []verify.Result       `json:"results"`
}

func newScanReport(id string, agg *scan.Aggregate) scanReport {
	results := agg.Results
	if results == nil {
		results = []verify.Result{}
	}
	return scanReport{
		ScanID:     id,
		Root:       agg.Root,
		Candidates: agg.Candidates,
		Excluded:   agg.Excluded,
		Processed:  agg.Processed(),
		Verified:   agg.Verified,
		Attention:  agg.Attention,
		Failed:     agg.Failed,
		Canceled:   agg.Canceled,
		Duration:   agg.Duration().String(),
		Counts:     agg.Counts,
		Results:    results,
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var workers int
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Verify every ROM and disc image below a folder",
		Long: `Verify every ROM and disc image below a folder.

Files are checked against the reference database for their system: exact
checksum matches first, then header-stripped matches, partial checksum
agreement, and finally name similarity. Track files referenced by a CUE sheet
are checked through the sheet instead of individually.

Press Ctrl+C to stop after the file being verified; the partial result is
still reported and recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "scan", "resolve root", args[0], err)
			}
			if workers <= 0 {
				workers = cfg.Scan.Workers
			}
			logger := ctx.log()

			lock, err := runlock.Acquire(cfg.LockDir(), root)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			engine, err := ctx.newEngine()
			if err != nil {
				return err
			}
			scanner := scan.New(engine, scan.WithWorkers(workers), scan.WithLogger(logger))

			errOut := cmd.ErrOrStderr()
			warnMissingDatabases(errOut, cfg)

			var obs scan.Observer = scan.ObserverFuncs{}
			if !jsonOutput {
				obs = consoleObserver{out: cmd.OutOrStdout(), errOut: errOut, color: shouldColorize(cmd.OutOrStdout())}
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			var store *history.Store
			var scanID string
			if cfg.History.Enabled && !noHistory {
				store, scanID = beginHistory(runCtx, cfg, root, logger, errOut)
				if store != nil {
					defer store.Close()
					runCtx = services.WithScanID(runCtx, scanID)
					obs = recordingObserver{next: obs, record: historyRecorder(runCtx, store, scanID, logger)}
				}
			}

			token := scan.NewCancelToken()
			stop := cancelOnSignal(token)
			defer stop()

			agg, scanErr := scanner.Scan(runCtx, root, obs, token)
			if store != nil {
				if err := store.Finish(context.WithoutCancel(runCtx), scanID, agg, scanErr); err != nil {
					logging.WarnWithContext(logger, "history finish failed", "history_write_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "scan totals missing from history"))
				}
			}
			if scanErr != nil {
				logging.ErrorWithContext(logging.WithContext(runCtx, logger), "scan failed", "scan_failed",
					logging.String(logging.FieldPath, root),
					logging.Error(scanErr),
					logging.String(logging.FieldErrorHint, "check that the folder exists and is readable"))
				return scanErr
			}

			if jsonOutput {
				if err := writeJSON(cmd, newScanReport(scanID, agg)); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprint(cmd.OutOrStdout(), renderSummary(agg))
				if scanID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Scan ID: %s\n", scanID)
				}
			}
			return scanOutcome(agg)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full scan report as JSON")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel checksum workers (default from config)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this scan in the history database")
	return cmd
}

func scanOutcome(agg *scan.Aggregate) error {
	if agg.Canceled {
		return services.Wrap(services.ErrCanceled, "scan", "run", "interrupted", nil)
	}
	if agg.Failed > 0 {
		return &verifyProblemError{failed: agg.Failed}
	}
	return nil
}

func warnMissingDatabases(out io.Writer, cfg *config.Config) {
	for _, cov := range preflight.CheckDatabases(nil, cfg) {
		if res := cov.Result(); !res.Passed {
			fmt.Fprintf(out, "Warning: %s: %s\n", res.Name, res.Detail)
		}
	}
}

func beginHistory(ctx context.Context, cfg *config.Config, root string, logger *slog.Logger, errOut io.Writer) (*history.Store, string) {
	store, err := history.Open(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "Warning: scan history unavailable: %v\n", err)
		return nil, ""
	}
	id, err := store.Begin(ctx, root)
	if err != nil {
		_ = store.Close()
		fmt.Fprintf(errOut, "Warning: scan history unavailable: %v\n", err)
		return nil, ""
	}
	logger.Debug("scan recorded", logging.String(logging.FieldScanID, id), logging.String("db", store.Path()))
	return store, id
}

// historyRecorder writes results as they arrive and reports the first
// failure only.
func historyRecorder(ctx context.Context, store *history.Store, id string, logger *slog.Logger) func(int, verify.Result) {
	var once sync.Once
	return func(index int, r verify.Result) {
		if err := store.Record(ctx, id, index, r); err != nil {
			once.Do(func() {
				logging.WarnWithContext(logger, "history record failed", "history_write_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "some results missing from history"))
			})
		}
	}
}

type recordingObserver struct {
	next   scan.Observer
	record func(int, verify.Result)
}

func (o recordingObserver) OnProgress(current, total int, filename string) {
	o.next.OnProgress(current, total, filename)
}

func (o recordingObserver) OnLog(message string) { o.next.OnLog(message) }

func (o recordingObserver) OnResult(index int, r verify.Result) {
	o.record(index, r)
	o.next.OnResult(index, r)
}

// cancelOnSignal trips token on SIGINT/SIGTERM. A second signal falls back to
// the default handler so a stuck run can still be killed.
func cancelOnSignal(token *scan.CancelToken) func() {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			token.Cancel()
			signal.Stop(sigs)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// elapsed is used by commands that time single operations.
func elapsed(start time.Time) string {
	return formatDuration(time.Since(start))
}
