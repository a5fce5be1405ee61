package canonical

// Canonicalizer resolves free-text department and unit names.
// The zero value is not usable; call New.
type Canonicalizer struct {
	canonical  []Rule
	commission []Rule
}

// New returns a Canonicalizer loaded with the fixed rule lists.
func New() *Canonicalizer {
	return &Canonicalizer{
		canonical:  canonicalRules,
		commission: commissionRules,
	}
}

// Canonicalize maps a (department, unit) pair onto a department label.
// Unit rules are evaluated before department rules. When nothing matches the
// department text is returned verbatim so the allowed-set filter can drop it.
func (c *Canonicalizer) Canonicalize(department, unit string) string {
	if label, ok := firstMatch(c.canonical, unit, department); ok {
		return label
	}
	return department
}

// ResolveCommission re-maps a label onto the commission code set. Unit short
// codes win over department checks; unmatched labels pass through.
func (c *Canonicalizer) ResolveCommission(unit, department string) string {
	if label, ok := firstMatch(c.commission, unit, department); ok {
		return label
	}
	return department
}

// Resolve runs both passes and parses the result. ok is false when the row
// belongs to a department outside the reporting set.
func (c *Canonicalizer) Resolve(department, unit string) (Department, bool) {
	label := c.ResolveCommission(unit, c.Canonicalize(department, unit))
	return ParseDepartment(label)
}
