package enums

import "fmt"

// AttributeKind names the attribute set a category's variations carry.
type AttributeKind string

const (
	AttributeKindTShirt       AttributeKind = "tshirt"
	AttributeKindPant         AttributeKind = "pant"
	AttributeKindShoe         AttributeKind = "shoe"
	AttributeKindShirt        AttributeKind = "shirt"
	AttributeKindJacket       AttributeKind = "jacket"
	AttributeKindUndergarment AttributeKind = "undergarment"
	AttributeKindGeneric      AttributeKind = "generic"
)

var validAttributeKinds = []AttributeKind{
	AttributeKindTShirt,
	AttributeKindPant,
	AttributeKindShoe,
	AttributeKindShirt,
	AttributeKindJacket,
	AttributeKindUndergarment,
	AttributeKindGeneric,
}

// String implements fmt.Stringer.
func (a AttributeKind) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttributeKind.
func (a AttributeKind) IsValid() bool {
	for _, candidate := range validAttributeKinds {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttributeKind converts raw input into a AttributeKind.
func ParseAttributeKind(value string) (AttributeKind, error) {
	for _, candidate := range validAttributeKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attribute kind %q", value)
}
