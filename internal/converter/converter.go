// =============================================================================
// WFC Ingest - Converter Module
// =============================================================================
//
// This module turns one WFC export into the records for its quarter. It is
// the per-file pipeline; picking which files to run is the coordinator's job.
//
// CONVERSION PIPELINE:
//   1. Parse the CSV payload
//   2. Resolve the ALB column and check the required columns
//   3. Canonicalize department names and filter the working set
//   4. Aggregate the three metrics and merge them
//   5. Prepare the records
//   6. Validate the records
//
// Every failure is a PipelineError naming the file. Cells that cannot be read
// are reported as DataQualityWarnings and do not fail the file.
//
// =============================================================================

package converter

import (
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/aggregate"
	"github.com/ginjaninja78/wfc-ingest/internal/canonical"
	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/csvparser"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
	"github.com/ginjaninja78/wfc-ingest/internal/validation"
)

// =============================================================================
// INPUT COLUMNS
// =============================================================================

// ALBColumns are the spellings the unit column has had, in lookup order.
var ALBColumns = []string{
	"ALB, Agency, Business Unit or Organisation",
	"ALB, Agency or Organisation",
	"ALB, Agency, Business Unit or Organisation ",
}

// Fixed input columns.
const (
	ColumnDepartment     = "Department"
	ColumnProfession     = "Profession"
	ColumnEmploymentType = "Employment Type"
	ColumnRoleStatus     = "Role Status"
	ColumnFTE            = "FTE (Person)"
)

// Profession is the only profession kept in the working set.
const Profession = "Digital, Data and Technology"

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of converting a single file.
type Result struct {
	// File is the source file name.
	File string

	// Quarter is the label the records were prepared for.
	Quarter string

	// Records are the validated records. Empty when the file failed.
	Records []types.IngestedRecord

	// Warnings are the cells read as missing.
	Warnings []types.DataQualityWarning

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of data rows in the file.
	RowsRead int

	// RowsKept is the number of rows left after canonicalization and filtering.
	RowsKept int

	// RowsDropped counts rows whose department is outside the reporting set.
	RowsDropped int

	// Departments is the number of records produced.
	Departments int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the per-file pipeline. It holds no per-file state and can
// be reused across files.
type Converter struct {
	settings     config.CSVSettings
	canonicalize *canonical.Canonicalizer
	preparer     Preparer
	validator    *validation.Validator
	logger       *zap.Logger
}

// New creates a Converter.
func New(settings config.CSVSettings, preparer Preparer, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		settings:     settings,
		canonicalize: canonical.New(),
		preparer:     preparer,
		validator:    validation.NewValidator(),
		logger:       logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run converts one export.
//
// PARAMETERS:
//   - file: The source file name, for errors and warnings.
//   - quarter: The label derived from the file name.
//   - payload: The CSV bytes.
//
// RETURNS:
//   - The records and warnings for the file.
//   - A schema, parse or validation PipelineError.
func (c *Converter) Run(file, quarter string, payload []byte) (Result, error) {
	startTime := time.Now()
	result := Result{File: file, Quarter: quarter}
	log := c.logger.With(zap.String("file", file), zap.String("quarter", quarter))

	// =========================================================================
	// STEP 1: PARSE CSV
	// =========================================================================

	csvData, err := csvparser.ParseBytes(payload, file, c.settings)
	if err != nil {
		return result, err
	}
	result.Stats.RowsRead = csvData.RowCount
	log.Debug("parsed csv", zap.Int("rows", csvData.RowCount), zap.Int("columns", csvData.ColumnCount))

	// =========================================================================
	// STEP 2: RESOLVE COLUMNS
	// =========================================================================
	// The unit column was renamed between collection rounds. The other
	// columns have kept their names.

	albColumn, err := csvData.ResolveColumn(ALBColumns...)
	if err != nil {
		return result, err
	}
	if err := csvData.RequireColumns(
		ColumnDepartment, ColumnProfession, ColumnEmploymentType, ColumnRoleStatus, ColumnFTE,
	); err != nil {
		return result, err
	}

	rawRows := make([]types.RawRow, 0, csvData.RowCount)
	for i, row := range csvData.Rows {
		rawRows = append(rawRows, types.RawRow{
			Department:     row[ColumnDepartment],
			Unit:           row[albColumn],
			Profession:     row[ColumnProfession],
			EmploymentType: row[ColumnEmploymentType],
			RoleStatus:     row[ColumnRoleStatus],
			FTE:            row[ColumnFTE],
			Line:           csvData.Lines[i],
		})
	}

	// =========================================================================
	// STEP 3: CANONICALIZE AND FILTER
	// =========================================================================

	rows, warnings, dropped := c.canonicalRows(file, rawRows)
	result.Warnings = warnings
	result.Stats.RowsKept = len(rows)
	result.Stats.RowsDropped = dropped
	for _, w := range warnings {
		log.Warn("data quality", zap.Int("line", w.Line), zap.String("column", w.Column),
			zap.String("value", w.Value), zap.String("reason", w.Message))
	}

	// =========================================================================
	// STEP 4: AGGREGATE
	// =========================================================================

	metrics := aggregate.Compute(rows)

	// =========================================================================
	// STEP 5: PREPARE
	// =========================================================================

	records := c.preparer.Prepare(metrics, quarter)

	// =========================================================================
	// STEP 6: VALIDATE
	// =========================================================================

	validated := c.validator.Validate(records)
	for _, ve := range validated.Errors {
		log.Warn("validation", zap.String("severity", ve.Severity), zap.String("detail", ve.Error()))
	}
	if err := validated.Err(file); err != nil {
		return result, err
	}

	result.Records = records
	result.Stats.Departments = len(records)
	result.Stats.ProcessingTime = time.Since(startTime)

	log.Info("converted file",
		zap.Int("rows_read", result.Stats.RowsRead),
		zap.Int("rows_kept", result.Stats.RowsKept),
		zap.Int("departments", result.Stats.Departments),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("elapsed", result.Stats.ProcessingTime),
	)
	return result, nil
}

// canonicalRows resolves each row's department, keeps the profession of
// interest and coerces FTE once per row.
func (c *Converter) canonicalRows(file string, raw []types.RawRow) ([]types.CanonicalRow, []types.DataQualityWarning, int) {
	var (
		rows     = make([]types.CanonicalRow, 0, len(raw))
		warnings []types.DataQualityWarning
		dropped  int
	)

	for _, r := range raw {
		if r.Profession != Profession {
			continue
		}
		dept, ok := c.canonicalize.Resolve(r.Department, r.Unit)
		if !ok {
			dropped++
			continue
		}

		fte, ok := aggregate.CoerceFTE(r.FTE)
		if !ok {
			warnings = append(warnings, types.DataQualityWarning{
				File:    file,
				Line:    r.Line,
				Column:  ColumnFTE,
				Value:   r.FTE,
				Message: "not a number, counted as missing",
			})
		}

		rows = append(rows, types.CanonicalRow{
			Department:     dept,
			Profession:     r.Profession,
			EmploymentType: r.EmploymentType,
			RoleStatus:     r.RoleStatus,
			FTE:            fte,
		})
	}

	return rows, warnings, dropped
}
