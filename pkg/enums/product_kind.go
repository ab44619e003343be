package enums

import "fmt"

// ProductKind splits variant-bearing singles from simple accessories.
type ProductKind string

const (
	ProductKindCard      ProductKind = "card"
	ProductKindAccessory ProductKind = "accessory"
)

var validProductKinds = []ProductKind{
	ProductKindCard,
	ProductKindAccessory,
}

// String implements fmt.Stringer.
func (p ProductKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductKind.
func (p ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
