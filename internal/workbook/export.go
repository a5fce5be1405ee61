package workbook

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/wfc-ingest/internal/quarter"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// SheetName is the name of the exported records sheet.
const SheetName = "WFC"

// exportColumns pairs each attribute code with its caption. The code row is
// what downstream commission tooling keys on.
var exportColumns = []struct {
	code    string
	caption string
}{
	{types.CodeSource, "Source"},
	{types.CodeIngestedAt, "Ingested at"},
	{types.CodeDepartment, "Department"},
	{types.CodeQuarter, "Quarter"},
	{types.CodeClassification, "Classification"},
	{types.CodePermanentFTE, "Permanent FTE"},
	{types.CodeTemporaryFTE, "Temporary FTE"},
	{types.CodeVacancyRate, "Vacancy rate (%)"},
}

// Export writes records to a workbook: a code row, a caption row, then one
// row per record ordered chronologically by quarter, then by department.
// Null metrics are left blank.
func Export(w io.Writer, records []types.IngestedRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	codes := make([]any, len(exportColumns))
	captions := make([]any, len(exportColumns))
	for i, c := range exportColumns {
		codes[i] = c.code
		captions[i] = c.caption
	}
	if err := f.SetSheetRow(SheetName, "A1", &codes); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A2", &captions); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"2", style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	sorted := append([]types.IngestedRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Quarter != sorted[j].Quarter {
			return quarter.Less(sorted[i].Quarter, sorted[j].Quarter)
		}
		return sorted[i].Department < sorted[j].Department
	})

	for i, r := range sorted {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		row := []any{
			r.Source,
			r.IngestedAt.Format(types.TimestampLayout),
			r.Department.String(),
			r.Quarter,
			r.Classification,
			metricCell(r.Permanent),
			metricCell(r.Temporary),
			metricCell(r.VacancyRate),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+3, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func metricCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
