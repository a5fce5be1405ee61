// =============================================================================
// WFC Ingest - Workbook Reader
// =============================================================================
//
// Some departments return the collection template as an .xlsx workbook
// instead of a CSV export. The reader flattens the first sheet into CSV so
// the rest of the pipeline sees one format.
//
// Cells are read as displayed values. Trailing empty cells are not emitted
// by excelize, so rows may be ragged; the CSV parser tolerates that.
//
// =============================================================================

package workbook

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ToCSV reads the first sheet of an .xlsx workbook and returns it as CSV.
//
// PARAMETERS:
//   - r: The workbook bytes.
//
// RETURNS:
//   - The sheet as comma-separated CSV.
//   - An error if the workbook cannot be opened or has no sheets.
func ToCSV(r io.Reader) ([]byte, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
