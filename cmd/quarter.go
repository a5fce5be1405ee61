// =============================================================================
// WFC Ingest - Quarter Command
// =============================================================================
//
// This file defines the 'quarter' command, which prints the quarter label a
// run would give each file name. It needs no configuration.
//
// COMMAND USAGE:
//   wfc-ingest quarter NAME...
//
// OUTPUT:
//   One line per name: the name, a tab, and the label or the error.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/wfc-ingest/internal/quarter"
)

var quarterCmd = &cobra.Command{
	Use:   "quarter NAME...",
	Short: "Print the quarter label for export file names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, name := range args {
			label, err := quarter.LabelFor(name)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s\terror: %v\n", name, err)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", name, label)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d name(s) could not be labelled", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quarterCmd)
}
