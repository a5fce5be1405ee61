// =============================================================================
// WFC Ingest - Canonicalization Rules
// =============================================================================
//
// Both passes are ordered lists of (field, matcher, result) rules. The first
// rule that matches wins; there is no scoring. Unit rules sit in front of the
// department rules because some agencies are grouped under a department whose
// name would hit a different rule (a courts agency under a justice department,
// a vehicle agency under transport).
//
// PASS 1 - Canonicalize:
//   Case-insensitive substring matching over free text. Produces an
//   intermediate label ("DfE", "MOJ", "DESNZ", ...).
//
// PASS 2 - ResolveCommission:
//   Equality matching over short codes and department names. Produces the
//   commission code set that ParseDepartment understands.
//
// =============================================================================

package canonical

import (
	"regexp"
	"strings"
)

// Field selects which input text a rule reads.
type Field uint8

const (
	FieldUnit Field = iota
	FieldDepartment
)

func (f Field) String() string {
	if f == FieldUnit {
		return "unit"
	}
	return "department"
}

// Matcher decides whether a rule applies to a piece of text.
type Matcher interface {
	Match(text string) bool
}

// Rule maps a match on one field to a result label.
type Rule struct {
	Name    string
	Field   Field
	Matcher Matcher
	Result  string
}

// Apply returns the rule's result if it matches the given texts.
func (r Rule) Apply(unit, department string) (string, bool) {
	text := department
	if r.Field == FieldUnit {
		text = unit
	}
	if r.Matcher.Match(text) {
		return r.Result, true
	}
	return "", false
}

// firstMatch evaluates rules in order.
func firstMatch(rules []Rule, unit, department string) (string, bool) {
	for _, rule := range rules {
		if result, ok := rule.Apply(unit, department); ok {
			return result, true
		}
	}
	return "", false
}

// =============================================================================
// MATCHERS
// =============================================================================

// substringMatcher matches when any of its fragments occurs, ignoring case.
type substringMatcher struct {
	re *regexp.Regexp
}

func containsAny(fragments ...string) Matcher {
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return substringMatcher{re: regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))}
}

func (m substringMatcher) Match(text string) bool {
	return m.re.MatchString(text)
}

// equalityMatcher matches a trimmed value against a list of codes, ignoring case.
type equalityMatcher []string

func equalsAny(values ...string) Matcher {
	return equalityMatcher(values)
}

func (m equalityMatcher) Match(text string) bool {
	text = strings.TrimSpace(text)
	for _, v := range m {
		if strings.EqualFold(text, v) {
			return true
		}
	}
	return false
}

// =============================================================================
// PASS 1 RULES
// =============================================================================

var canonicalRules = []Rule{
	{Name: "dvsa", Field: FieldUnit, Matcher: containsAny("driver and vehicle standards agency"), Result: "DVSA"},
	{Name: "hmcts", Field: FieldUnit, Matcher: containsAny("hm courts and tribunals service"), Result: "HMCTS"},
	{Name: "dvla", Field: FieldUnit, Matcher: containsAny("dvla", "driver and vehicle licensing agency"), Result: "DVLA"},

	{Name: "cabinet-office", Field: FieldDepartment, Matcher: containsAny("cab", "cabinet office"), Result: "CO"},
	{Name: "business-and-trade", Field: FieldDepartment, Matcher: containsAny("business and trade"), Result: "DBT"},
	{Name: "science", Field: FieldDepartment, Matcher: containsAny("science, innovation", "science innovation", "dsit"), Result: "DSIT"},
	{Name: "energy", Field: FieldDepartment, Matcher: containsAny(
		"bis", "beis", "department for business", "department business energy",
		"business innovation", "net zero", "energy security",
	), Result: "DESNZ"},
	{Name: "education", Field: FieldDepartment, Matcher: containsAny(
		"dfe", "department for educ", "department of education", "deparment for education", "education",
	), Result: "DfE"},
	{Name: "transport", Field: FieldDepartment, Matcher: containsAny("dft", "department for tran"), Result: "DfT"},
	{Name: "international-trade", Field: FieldDepartment, Matcher: containsAny("international trade"), Result: "DIT"},
	{Name: "environment", Field: FieldDepartment, Matcher: containsAny("defra", "deffra", "department for environment"), Result: "DEFRA"},
	{Name: "work-and-pensions", Field: FieldDepartment, Matcher: containsAny("department for work", "dwp", "wap", "work"), Result: "DWP"},
	{Name: "justice", Field: FieldDepartment, Matcher: containsAny("justice", "moj"), Result: "MOJ"},
	{Name: "treasury", Field: FieldDepartment, Matcher: containsAny("treasury"), Result: "HMT"},
	{Name: "home-office", Field: FieldDepartment, Matcher: containsAny("home office"), Result: "HO"},
	{Name: "levelling-up", Field: FieldDepartment, Matcher: containsAny(
		"mhclg", "housing, communities", "local", "ministry of communities", "department for levelling",
	), Result: "DLUHC"},
	{Name: "foreign-office", Field: FieldDepartment, Matcher: containsAny(
		"dfid", "fcdo", "international development", "foreign, commonwealth",
	), Result: "FCDO"},
	{Name: "revenue", Field: FieldDepartment, Matcher: containsAny(
		"hmrc", "hm revenue", "her majesty's revenue", "his majesty's revenue",
	), Result: "HMRC"},
	{Name: "defence", Field: FieldDepartment, Matcher: containsAny("mod", "defence", "m0d"), Result: "MOD"},
	{Name: "culture", Field: FieldDepartment, Matcher: containsAny("culture, media and sport", "culture media sport"), Result: "DCMS"},
}

// =============================================================================
// PASS 2 RULES
// =============================================================================

var commissionRules = []Rule{
	{Name: "hmcts", Field: FieldUnit, Matcher: equalsAny("HMCTS"), Result: HMCTS.String()},
	{Name: "dvla", Field: FieldUnit, Matcher: equalsAny("DVLA"), Result: DVLA.String()},
	{Name: "dvsa", Field: FieldUnit, Matcher: equalsAny("DVSA"), Result: DVSA.String()},
	{Name: "slc", Field: FieldUnit, Matcher: equalsAny("SLC"), Result: SLC.String()},
	{Name: "fsa", Field: FieldUnit, Matcher: equalsAny("FSA"), Result: "FSA"},
	{Name: "gds", Field: FieldUnit, Matcher: equalsAny("GDS"), Result: GDS.String()},
	{Name: "homes-england", Field: FieldUnit, Matcher: equalsAny("Homes England"), Result: HomesEngland.String()},

	{Name: "education", Field: FieldDepartment, Matcher: equalsAny("DfE"), Result: DFE.String()},
	{Name: "transport", Field: FieldDepartment, Matcher: equalsAny("DfT"), Result: DFT.String()},
	{Name: "business-and-trade", Field: FieldDepartment, Matcher: equalsAny("DIT", "DBT"), Result: DBT.String()},
	{Name: "environment", Field: FieldDepartment, Matcher: equalsAny("Defra"), Result: DEFRA.String()},
	{Name: "cabinet-office", Field: FieldDepartment, Matcher: equalsAny("Cabinet Office", "CO"), Result: CO.String()},
	{Name: "treasury", Field: FieldDepartment, Matcher: equalsAny("HM Treasury", "HMT"), Result: HMT.String()},
	{Name: "home-office", Field: FieldDepartment, Matcher: equalsAny("Home Office", "HO"), Result: HO.String()},
	{Name: "defence", Field: FieldDepartment, Matcher: equalsAny("MoD"), Result: MOD.String()},
	{Name: "justice", Field: FieldDepartment, Matcher: equalsAny("MoJ"), Result: MOJ.String()},
	{Name: "energy", Field: FieldDepartment, Matcher: equalsAny("DESNZ"), Result: DESNZDSIT.String()},
	{Name: "science", Field: FieldDepartment, Matcher: equalsAny("DSIT"), Result: DESNZDSIT.String()},
}

// CanonicalRules returns a copy of the first-pass rule list in evaluation order.
func CanonicalRules() []Rule {
	return append([]Rule(nil), canonicalRules...)
}

// CommissionRules returns a copy of the second-pass rule list in evaluation order.
func CommissionRules() []Rule {
	return append([]Rule(nil), commissionRules...)
}
