package enums

// LimitKind identifies which organization bound a prospective transaction violated.
type LimitKind string

const (
	LimitKindUpper   LimitKind = "upper"
	LimitKindLower   LimitKind = "lower"
	LimitKindMonthly LimitKind = "monthly"
)

// String implements fmt.Stringer.
func (k LimitKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known LimitKind.
func (k LimitKind) IsValid() bool {
	switch k {
	case LimitKindUpper, LimitKindLower, LimitKindMonthly:
		return true
	}
	return false
}
