// =============================================================================
// WFC Ingest - Validation Engine
// =============================================================================
//
// This module validates prepared records before they are appended. The store
// is append-only, so a bad record cannot be corrected after the fact; the
// checks here are the last gate.
//
// VALIDATION LEVELS:
//   1. Field-level: department code, quarter label, tags, metric ranges
//   2. Record-level: a record must carry at least one metric
//   3. Batch-level: one quarter per file, one record per department
//
// ERROR HANDLING:
//   - Errors are collected, not returned at the first failure
//   - Each error names the record index, department and field
//   - Warnings are reported but do not fail the batch
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/wfc-ingest/internal/quarter"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the record field that failed.
	Field string

	// Value is the offending value, rendered as text.
	Value string

	// Rule names the check that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	// Index is the position of the record in the batch.
	Index int

	// Department is the record's department code, if any.
	Department string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] record %d (%s), field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Index,
		e.Department,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// RecordsValidated is the size of the batch.
	RecordsValidated int
}

// Err returns a validation-kind PipelineError for file when the batch failed,
// or nil.
func (r *ValidationResult) Err(file string) error {
	if r.IsValid {
		return nil
	}
	msgs := make([]string, 0, r.ErrorCount)
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			msgs = append(msgs, e.Error())
		}
	}
	return types.NewPipelineError(types.KindValidation, file,
		errors.Errorf("%d invalid record field(s): %s", r.ErrorCount, strings.Join(msgs, "; ")))
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors fails the batch on warnings too.
	// Default: false
	TreatWarningsAsErrors bool
}

// Validator checks batches of ingested records.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate checks one file's records.
func (v *Validator) Validate(records []types.IngestedRecord) *ValidationResult {
	result := &ValidationResult{RecordsValidated: len(records)}

	seen := make(map[string]int, len(records))
	for i := range records {
		v.validateRecord(i, &records[i], result)

		dept := records[i].Department.String()
		if first, dup := seen[dept]; dup && dept != "" {
			result.add(&ValidationError{
				Severity: SeverityError, Field: "department", Value: dept, Rule: "unique",
				Message: fmt.Sprintf("duplicates record %d", first), Index: i, Department: dept,
			})
		} else {
			seen[dept] = i
		}

		if i > 0 && records[i].Quarter != records[0].Quarter {
			result.add(&ValidationError{
				Severity: SeverityError, Field: "quarter", Value: records[i].Quarter, Rule: "single_quarter",
				Message: fmt.Sprintf("batch mixes quarters %q and %q", records[0].Quarter, records[i].Quarter),
				Index:   i, Department: dept,
			})
		}
	}

	result.IsValid = result.ErrorCount == 0
	if v.options.TreatWarningsAsErrors && result.WarningCount > 0 {
		result.IsValid = false
	}
	return result
}

// validateRecord runs the field and record checks for one record.
func (v *Validator) validateRecord(i int, r *types.IngestedRecord, result *ValidationResult) {
	dept := r.Department.String()
	fail := func(severity, field, value, rule, msg string) {
		result.add(&ValidationError{
			Severity: severity, Field: field, Value: value, Rule: rule,
			Message: msg, Index: i, Department: dept,
		})
	}

	if !r.Department.Valid() {
		fail(SeverityError, "department", dept, "enum", "department is not a reporting code")
	}
	if _, err := quarter.Parse(r.Quarter); err != nil {
		fail(SeverityError, "quarter", r.Quarter, "format", "quarter label is malformed")
	}
	if strings.TrimSpace(r.Source) == "" {
		fail(SeverityError, "source", r.Source, "required", "source tag is empty")
	}
	if strings.TrimSpace(r.Classification) == "" {
		fail(SeverityError, "classification", r.Classification, "required", "classification is empty")
	}
	if r.IngestedAt.IsZero() {
		fail(SeverityError, "ingested_at", "", "required", "ingestion timestamp is not set")
	}

	if r.Permanent.Valid && r.Permanent.Decimal.IsNegative() {
		fail(SeverityError, "permanent", r.Permanent.Decimal.String(), "non_negative", "headcount is negative")
	}
	if r.Temporary.Valid && r.Temporary.Decimal.IsNegative() {
		fail(SeverityError, "temporary", r.Temporary.Decimal.String(), "non_negative", "headcount is negative")
	}
	if r.VacancyRate.Valid {
		rate := r.VacancyRate.Decimal
		if rate.IsNegative() || rate.GreaterThan(hundred) {
			fail(SeverityError, "vacancy_rate", rate.String(), "range", "vacancy rate is outside 0..100")
		}
	}

	if !r.Permanent.Valid && !r.Temporary.Valid && !r.VacancyRate.Valid {
		fail(SeverityWarning, "metrics", "", "non_empty", "record carries no metric")
	}
}
