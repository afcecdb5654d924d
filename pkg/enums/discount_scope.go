package enums

import "fmt"

// DiscountScope is the entity a discount applies to.
type DiscountScope string

const (
	DiscountScopeCart     DiscountScope = "CART"
	DiscountScopeProduct  DiscountScope = "PRODUCT"
	DiscountScopeShipping DiscountScope = "SHIPPING"
	DiscountScopeCategory DiscountScope = "CATEGORY"
)

var validDiscountScopes = []DiscountScope{
	DiscountScopeCart,
	DiscountScopeProduct,
	DiscountScopeShipping,
	DiscountScopeCategory,
}

// String implements fmt.Stringer.
func (d DiscountScope) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountScope.
func (d DiscountScope) IsValid() bool {
	for _, candidate := range validDiscountScopes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountScope converts raw input into a DiscountScope.
func ParseDiscountScope(value string) (DiscountScope, error) {
	for _, candidate := range validDiscountScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount scope %q", value)
}

// PricesVariations reports whether discounts of this scope change variation prices.
func (d DiscountScope) PricesVariations() bool {
	return d == DiscountScopeProduct || d == DiscountScopeCategory
}
