package enums

import "fmt"

// CartStatus tracks a cart's lifecycle. A driver has at most one
// active cart; checkout converts it.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	switch c {
	case CartStatusActive, CartStatusConverted:
		return true
	}
	return false
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	status := CartStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid cart status %q", value)
	}
	return status, nil
}
