// =============================================================================
// WFC Ingest - Export Command
// =============================================================================
//
// This file defines the 'export' command, which writes every stored record
// for the configured source tag to an Excel workbook.
//
// COMMAND USAGE:
//   wfc-ingest export [flags]
//
// FLAGS:
//   --out : Output directory (default: output_dir from config)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/ingest"
	"github.com/ginjaninja78/wfc-ingest/internal/workbook"
	"github.com/ginjaninja78/wfc-ingest/pkg/utils"
)

// exportFileFormat names the workbook; see utils.GenerateOutputFileName.
const exportFileFormat = "{source}_records_{timestamp}"

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := exportDir
		if dir == "" {
			dir = mainConfig.OutputDir
		}
		path, n, err := exportRecords(cmd.Context(), mainConfig, logger, dir, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d record(s) to %s\n", n, path)
		return nil
	},
}

// exportRecords writes the stored records to a new workbook in dir and
// returns its path and the number of records written.
func exportRecords(ctx context.Context, cfg *config.MainConfig, log *zap.Logger, dir string, now time.Time) (string, int, error) {
	st, closeStore, err := openStore(ctx, cfg, log, false)
	if err != nil {
		return "", 0, err
	}
	defer closeStore()

	return writeExport(ctx, st, cfg.SourceTag, dir, now, log)
}

func writeExport(ctx context.Context, st ingest.Store, sourceTag, dir string, now time.Time, log *zap.Logger) (string, int, error) {
	records, err := st.Query(ctx, sourceTag)
	if err != nil {
		return "", 0, fmt.Errorf("failed to query records: %w", err)
	}

	if err := utils.EnsureDir(dir); err != nil {
		return "", 0, err
	}
	name := utils.GenerateOutputFileName(exportFileFormat, ".xlsx", now, map[string]string{"source": sourceTag})
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := workbook.Export(file, records); err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Info("exported records", zap.String("path", path), zap.Int("records", len(records)))
	return path, len(records), nil
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "out", "", "Output directory (default: output_dir from config)")

	rootCmd.AddCommand(exportCmd)
}
