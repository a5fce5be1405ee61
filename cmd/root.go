// =============================================================================
// WFC Ingest - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (wfc-ingest)
//   ├── runCmd     (wfc-ingest run)
//   ├── quarterCmd (wfc-ingest quarter)
//   ├── exportCmd  (wfc-ingest export)
//   └── versionCmd (wfc-ingest version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration before any subcommand runs
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/observability"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// Loaded by PersistentPreRunE.
var (
	mainConfig *config.MainConfig
	logger     *zap.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wfc-ingest",
	Short: "WFC Ingest - Quarterly workforce capability ingest",
	Long: `WFC Ingest reads the quarterly workforce capability (WFC) exports, maps
every organisation onto its reporting department, computes the digital
headcount, contractor count and vacancy rate per department, and appends the
result to the records store. A quarter that is already stored is never
ingested twice.

Example Usage:
  wfc-ingest run                            # Ingest new quarters from Drive
  wfc-ingest run --source local --dir ./in  # Ingest from a local folder
  wfc-ingest run --dry-run                  # Convert without writing
  wfc-ingest quarter "WFC-2023-08-01.csv"   # Show the quarter for a file name
  wfc-ingest export --out ./reports         # Export stored records to xlsx`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "quarter" {
			return nil
		}

		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		l, err := observability.NewLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		mainConfig = cfg
		logger = l
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
