// =============================================================================
// WFC Ingest - Main Entry Point
// =============================================================================
//
// USAGE:
//   wfc-ingest run       - Ingest quarters not yet in the store
//   wfc-ingest quarter   - Print the quarter label for file names
//   wfc-ingest export    - Export stored records to an xlsx report
//   wfc-ingest version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Pipeline, sources, stores and configuration
//   - pkg/       : Run report utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/wfc-ingest/cmd"
)

func main() {
	cmd.Execute()
}
