// =============================================================================
// WFC Ingest - Canonical Departments
// =============================================================================
//
// Department is the closed set of codes the commission reports on. Any label
// that does not parse into one of these codes is dropped from the working set
// before aggregation.
//
// DESNZ&DSIT is a merged code: the energy and the science departments report
// as one unit.
//
// =============================================================================

package canonical

import "fmt"

// Department is a canonical commission department code.
type Department uint8

const (
	// Unknown is the zero value and never appears in a filtered row.
	Unknown Department = iota
	CO
	DBT
	DCMS
	DLUHC
	DVLA
	DVSA
	DWP
	DEFRA
	DFT
	FCDO
	HMCTS
	HMRC
	HMT
	HO
	MOD
	MOJ
	SLC
	GDS
	HomesEngland
	DESNZDSIT
	DFE
)

var departmentCodes = [...]string{
	Unknown:      "",
	CO:           "CO",
	DBT:          "DBT",
	DCMS:         "DCMS",
	DLUHC:        "DLUHC",
	DVLA:         "DVLA",
	DVSA:         "DVSA",
	DWP:          "DWP",
	DEFRA:        "DEFRA",
	DFT:          "DFT",
	FCDO:         "FCDO",
	HMCTS:        "HMCTS",
	HMRC:         "HMRC",
	HMT:          "HMT",
	HO:           "HO",
	MOD:          "MOD",
	MOJ:          "MOJ",
	SLC:          "SLC",
	GDS:          "GDS",
	HomesEngland: "Homes England",
	DESNZDSIT:    "DESNZ&DSIT",
	DFE:          "DFE",
}

var departmentsByCode = func() map[string]Department {
	m := make(map[string]Department, len(departmentCodes))
	for i, code := range departmentCodes {
		if code != "" {
			m[code] = Department(i)
		}
	}
	return m
}()

// String returns the commission code.
func (d Department) String() string {
	if int(d) < len(departmentCodes) {
		return departmentCodes[d]
	}
	return fmt.Sprintf("Department(%d)", uint8(d))
}

// Valid reports whether d is a member of the closed set.
func (d Department) Valid() bool {
	return d > Unknown && int(d) < len(departmentCodes)
}

// ParseDepartment converts a resolved label into a Department.
// The match is exact: labels are expected to come out of ResolveCommission.
func ParseDepartment(label string) (Department, bool) {
	d, ok := departmentsByCode[label]
	return d, ok
}

// Departments returns every member of the set in declaration order.
func Departments() []Department {
	all := make([]Department, 0, len(departmentCodes)-1)
	for i := 1; i < len(departmentCodes); i++ {
		all = append(all, Department(i))
	}
	return all
}
