// =============================================================================
// WFC Ingest - Run Command
// =============================================================================
//
// This file defines the 'run' command, which performs one ingest pass. It is
// what the scheduler invokes.
//
// COMMAND USAGE:
//   wfc-ingest run [flags]
//
// FLAGS:
//   --dry-run : Convert pending files without appending records
//   --source  : Override the discovery source ("drive" or "local")
//   --dir     : Directory for the local source
//
// PROCESSING PIPELINE:
//   1. Open the discovery source, the store and the run lock
//   2. Run the coordinator
//   3. Write the run summary and error log
//   4. Push run metrics
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/converter"
	"github.com/ginjaninja78/wfc-ingest/internal/ingest"
	"github.com/ginjaninja78/wfc-ingest/internal/observability"
	"github.com/ginjaninja78/wfc-ingest/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun      bool
	sourceFlag  string
	localDirArg string
)

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest every quarter not yet in the store",
	Long: `The run command lists the candidate exports, keeps the earliest upload
for each quarter, skips quarters that are already stored, converts the rest
and appends all new records in one batch.

A file that cannot be read is reported and skipped by default. Set
file_error_policy: abort to stop the run instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sourceFlag != "" {
			mainConfig.Source = sourceFlag
		}
		if localDirArg != "" {
			mainConfig.Local.Dir = localDirArg
			if sourceFlag == "" {
				mainConfig.Source = config.SourceLocal
			}
		}
		return runIngest(cmd.Context(), mainConfig, logger, dryRun)
	},
}

// runIngest wires the collaborators and performs one run.
func runIngest(ctx context.Context, cfg *config.MainConfig, log *zap.Logger, dry bool) error {
	// =========================================================================
	// STEP 1: OPEN COLLABORATORS
	// =========================================================================

	if !dry {
		if err := cfg.RequireStore(); err != nil {
			return fmt.Errorf("%w; use --dry-run to convert without a store", err)
		}
	}

	discovery, err := openDiscovery(ctx, cfg, log)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, log, dry)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := observability.NewMetrics()
	options := []ingest.Option{ingest.WithLogger(log.Named("ingest")), ingest.WithMetrics(metrics)}
	if !dry {
		locker, closeLocker := openLocker(cfg, log)
		defer closeLocker()
		if locker != nil {
			options = append(options, ingest.WithLocker(locker))
		}
	}

	conv := converter.New(cfg.CSVSettings, converter.Preparer{
		Source:         cfg.SourceTag,
		Classification: cfg.Classification,
	}, log.Named("converter"))

	coordinator := ingest.NewCoordinator(discovery, st, conv, ingest.Options{
		SourceTag:       cfg.SourceTag,
		FileErrorPolicy: cfg.FileErrorPolicy,
		DryRun:          dry,
	}, options...)

	// =========================================================================
	// STEP 2: RUN
	// =========================================================================

	summary, runErr := coordinator.Run(ctx)

	// =========================================================================
	// STEP 3: REPORTS
	// =========================================================================
	// Reports are written even when the run failed, so the summary says why.

	if err := writeReports(cfg.OutputDir, summary, runErr); err != nil {
		log.Warn("failed to write run reports", zap.Error(err))
	}

	// =========================================================================
	// STEP 4: METRICS
	// =========================================================================

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.Metrics.PushGatewayURL, cfg.Metrics.Job); err != nil {
		log.Warn("failed to push metrics", zap.Error(err))
	}

	if runErr != nil {
		return runErr
	}

	verb := "new record(s)"
	if dry {
		verb = "record(s) converted, none written (dry run)"
	}
	fmt.Printf("run %s: %d %s, quarters: %v, skipped: %v, rejected files: %d\n",
		summary.RunID, summary.NewRecords, verb, summary.NewQuarters, summary.SkippedQuarters, len(summary.Failures))
	return nil
}

// writeReports converts the run summary into the report files.
func writeReports(outputDir string, summary ingest.Summary, runErr error) error {
	if err := utils.EnsureDir(outputDir); err != nil {
		return err
	}

	report := utils.RunSummary{
		RunID:           summary.RunID,
		StartTime:       summary.StartedAt,
		EndTime:         summary.FinishedAt,
		DryRun:          summary.DryRun,
		FilesListed:     summary.FilesListed,
		NewQuarters:     summary.NewQuarters,
		SkippedQuarters: summary.SkippedQuarters,
		NewRecords:      summary.NewRecords,
		Warnings:        len(summary.Warnings),
	}
	if runErr != nil {
		report.RunError = runErr.Error()
	}

	var entries []utils.ErrorLogEntry
	for _, f := range summary.Failures {
		report.FailedFiles = append(report.FailedFiles, utils.FailedFileInfo{
			InputFile:    f.File,
			Quarter:      f.Quarter,
			ErrorType:    string(f.Kind),
			ErrorMessage: f.Err.Error(),
		})
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    summary.FinishedAt,
			FileName:     f.File,
			Quarter:      f.Quarter,
			ErrorType:    string(f.Kind),
			ErrorMessage: f.Err.Error(),
		})
	}
	for _, w := range summary.Warnings {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    summary.FinishedAt,
			FileName:     w.File,
			ErrorType:    "data_quality",
			ErrorMessage: w.Message,
			RowNumber:    w.Line,
			FieldName:    w.Column,
			FieldValue:   w.Value,
		})
	}

	if _, err := utils.WriteSummaryLog(report, outputDir); err != nil {
		return err
	}
	if _, err := utils.WriteErrorLog(entries, outputDir, summary.RunID, summary.FinishedAt); err != nil {
		return err
	}
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Convert pending files without appending records")
	runCmd.Flags().StringVar(&sourceFlag, "source", "", `Discovery source: "drive" or "local"`)
	runCmd.Flags().StringVar(&localDirArg, "dir", "", "Directory of exports for the local source")

	rootCmd.AddCommand(runCmd)
}
