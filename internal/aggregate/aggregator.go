// =============================================================================
// WFC Ingest - Metrics Aggregator
// =============================================================================
//
// Three metrics are computed per department from the filtered working set:
//
//   | Code    | Metric               | Employment types      | Role status      |
//   |---------|----------------------|-----------------------|------------------|
//   | QM06009 | Permanent headcount  | Permanent, Fixed term | Filled           |
//   | QM06010 | Temporary headcount  | Temporary             | Filled           |
//   | QM06011 | Vacancy rate (%)     | any                   | Filled / Vacancy |
//
// The three aggregates are outer-joined on department. A department missing
// from an aggregate gets a null metric, never a zero.
//
// =============================================================================

package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/wfc-ingest/internal/canonical"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// Filter values used by the three metrics.
var (
	PermanentTypes = []string{"Permanent", "Fixed term"}
	TemporaryTypes = []string{"Temporary"}
	FilledStatus   = []string{"Filled"}
	VacancyStatus  = []string{"Vacancy"}
)

var hundred = decimal.NewFromInt(100)

// Totals maps a department to the summed FTE of its rows.
type Totals map[canonical.Department]decimal.Decimal

// CoerceFTE converts a raw FTE cell. Empty text is missing. Text that is not
// a number is missing too, and ok is false so the caller can report it.
func CoerceFTE(text string) (fte decimal.NullDecimal, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.NullDecimal{}, true
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, true
}

// Sum adds up FTE per department over rows matching both filters. A nil
// filter matches everything. Rows with a null FTE add nothing but still put
// their department in the result.
func Sum(rows []types.CanonicalRow, employmentTypes, roleStatuses []string) Totals {
	totals := make(Totals)
	for _, row := range rows {
		if !matches(employmentTypes, row.EmploymentType) || !matches(roleStatuses, row.RoleStatus) {
			continue
		}
		total := totals[row.Department]
		if row.FTE.Valid {
			total = total.Add(row.FTE.Decimal)
		}
		totals[row.Department] = total
	}
	return totals
}

func matches(filter []string, value string) bool {
	if filter == nil {
		return true
	}
	for _, f := range filter {
		if f == value {
			return true
		}
	}
	return false
}

// VacancyRate computes 100 * vacant / (vacant + filled) for departments
// present in both totals, rounded half-to-even to one decimal place.
// Departments with a zero denominator are left out.
func VacancyRate(filled, vacant Totals) Totals {
	rates := make(Totals)
	for dept, v := range vacant {
		f, ok := filled[dept]
		if !ok {
			continue
		}
		denominator := v.Add(f)
		if denominator.IsZero() {
			continue
		}
		rates[dept] = v.Mul(hundred).Div(denominator).RoundBank(1)
	}
	return rates
}

// Merge outer-joins the three aggregates. The result is ordered by department.
func Merge(permanent, temporary, vacancy Totals) []types.DepartmentMetrics {
	seen := make(map[canonical.Department]struct{})
	for _, totals := range []Totals{permanent, temporary, vacancy} {
		for dept := range totals {
			seen[dept] = struct{}{}
		}
	}

	depts := make([]canonical.Department, 0, len(seen))
	for dept := range seen {
		depts = append(depts, dept)
	}
	sort.Slice(depts, func(i, j int) bool { return depts[i] < depts[j] })

	metrics := make([]types.DepartmentMetrics, 0, len(depts))
	for _, dept := range depts {
		metrics = append(metrics, types.DepartmentMetrics{
			Department:  dept,
			Permanent:   lookup(permanent, dept),
			Temporary:   lookup(temporary, dept),
			VacancyRate: lookup(vacancy, dept),
		})
	}
	return metrics
}

func lookup(totals Totals, dept canonical.Department) decimal.NullDecimal {
	v, ok := totals[dept]
	return decimal.NullDecimal{Decimal: v, Valid: ok}
}

// Compute runs the three aggregations and merges them.
func Compute(rows []types.CanonicalRow) []types.DepartmentMetrics {
	permanent := Sum(rows, PermanentTypes, FilledStatus)
	temporary := Sum(rows, TemporaryTypes, FilledStatus)
	vacancy := VacancyRate(
		Sum(rows, nil, FilledStatus),
		Sum(rows, nil, VacancyStatus),
	)
	return Merge(permanent, temporary, vacancy)
}
