// =============================================================================
// WFC Ingest - Shared Types
// =============================================================================
//
// This package contains the record types shared by the pipeline stages. They
// live here to avoid import cycles between:
//   - converter (per-file pipeline)
//   - ingest    (run coordinator)
//   - store     (persistence)
//   - workbook  (xlsx import/export)
//
// =============================================================================

package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/wfc-ingest/internal/canonical"
)

// =============================================================================
// SOURCE FILES
// =============================================================================

// SourceFile is a candidate export as reported by a discovery source.
type SourceFile struct {
	// ID is the source-specific identifier passed back to FetchCSV.
	ID string

	// Name is the file name as uploaded, e.g. "WFC - 2023-08-01.csv".
	Name string

	// CreatedAt is used to pick the earliest upload for a quarter.
	CreatedAt time.Time

	// Trashed files are never ingested.
	Trashed bool
}

// =============================================================================
// ROWS
// =============================================================================

// RawRow is one record of a WFC export, before any normalization.
type RawRow struct {
	Department     string
	Unit           string
	Profession     string
	EmploymentType string
	RoleStatus     string
	FTE            string

	// Line is the 1-indexed line number in the source file.
	Line int
}

// CanonicalRow is a RawRow that survived canonicalization and filtering.
type CanonicalRow struct {
	Department     canonical.Department
	Profession     string
	EmploymentType string
	RoleStatus     string

	// FTE is null when the source value was empty or not a number.
	FTE decimal.NullDecimal
}

// =============================================================================
// METRICS AND RECORDS
// =============================================================================

// DepartmentMetrics is the merged metric set for one department.
// A metric that no aggregate produced stays null.
type DepartmentMetrics struct {
	Department  canonical.Department
	Permanent   decimal.NullDecimal
	Temporary   decimal.NullDecimal
	VacancyRate decimal.NullDecimal
}

// IngestedRecord is the persisted shape: one row per department per quarter.
type IngestedRecord struct {
	Department     canonical.Department
	Permanent      decimal.NullDecimal
	Temporary      decimal.NullDecimal
	VacancyRate    decimal.NullDecimal
	Quarter        string
	Source         string
	Classification string
	IngestedAt     time.Time
}

// Attribute codes used by the commission reporting schema.
const (
	CodeSource         = "QM00001"
	CodeIngestedAt     = "QM00002"
	CodeDepartment     = "QM00003"
	CodeQuarter        = "QM00004"
	CodeClassification = "QM00006"
	CodePermanentFTE   = "QM06009"
	CodeTemporaryFTE   = "QM06010"
	CodeVacancyRate    = "QM06011"
)

// TimestampLayout is the wire format of CodeIngestedAt.
const TimestampLayout = "2006-01-02 15:04:05"

// =============================================================================
// WARNINGS
// =============================================================================

// DataQualityWarning reports a cell that was read as missing because it could
// not be interpreted. It never fails a file.
type DataQualityWarning struct {
	File    string
	Line    int
	Column  string
	Value   string
	Message string
}

func (w DataQualityWarning) String() string {
	return fmt.Sprintf("%s:%d: %s %q: %s", w.File, w.Line, w.Column, w.Value, w.Message)
}
