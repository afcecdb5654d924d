package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Rule is the closed set of discount transforms. Apply reports false when the rule
// leaves the unit price untouched.
type Rule interface {
	Apply(price decimal.Decimal) (decimal.Decimal, bool)
	sealed()
}

// Percentage takes Percent (0,100] off the unit price.
type Percentage struct {
	Percent decimal.Decimal
}

func (Percentage) sealed() {}

func (p Percentage) Apply(price decimal.Decimal) (decimal.Decimal, bool) {
	factor := hundred.Sub(p.Percent).Div(hundred)
	return price.Mul(factor), true
}

// FixedAmount subtracts Amount from the unit price, never going below zero.
type FixedAmount struct {
	Amount decimal.Decimal
}

func (FixedAmount) sealed() {}

func (f FixedAmount) Apply(price decimal.Decimal) (decimal.Decimal, bool) {
	out := price.Sub(f.Amount)
	if out.IsNegative() {
		out = decimal.Zero
	}
	return out, true
}

// BuyXGetY gives Get free units for every Buy units of Product. It is a basket rule
// and does not change the unit price of a variation.
type BuyXGetY struct {
	Buy     int
	Get     int
	Product uuid.UUID
}

func (BuyXGetY) sealed() {}

func (BuyXGetY) Apply(price decimal.Decimal) (decimal.Decimal, bool) {
	return price, false
}

// FreeUnits returns how many of quantity units are free under the rule.
func (b BuyXGetY) FreeUnits(quantity int) int {
	group := b.Buy + b.Get
	if group <= 0 || quantity < group {
		return 0
	}
	return (quantity / group) * b.Get
}

// unitRule returns the rule of d when it rewrites a price. Basket rules and
// malformed rows report false and take no part in a stacking chain.
func unitRule(d models.Discount) (Rule, bool) {
	rule, err := RuleFor(d)
	if err != nil {
		return nil, false
	}
	if _, basket := rule.(BuyXGetY); basket {
		return nil, false
	}
	return rule, true
}

// RuleFor builds the rule for a stored discount, rejecting inconsistent rows.
func RuleFor(d models.Discount) (Rule, error) {
	switch d.DiscountType {
	case enums.DiscountTypePercentage:
		if !d.Value.IsPositive() || d.Value.GreaterThan(hundred) {
			return nil, fmt.Errorf("percentage must be in (0,100], got %s", d.Value)
		}
		return Percentage{Percent: d.Value}, nil
	case enums.DiscountTypeFixedAmount:
		if !d.Value.IsPositive() {
			return nil, fmt.Errorf("fixed amount must be positive, got %s", d.Value)
		}
		return FixedAmount{Amount: d.Value}, nil
	case enums.DiscountTypeBuyXGetY:
		if d.BuyQuantity == nil || d.GetQuantity == nil || d.AppliedToProductID == nil {
			return nil, fmt.Errorf("buy x get y requires buy/get quantities and a target product")
		}
		if *d.BuyQuantity <= 0 || *d.GetQuantity <= 0 {
			return nil, fmt.Errorf("buy x get y quantities must be positive")
		}
		return BuyXGetY{Buy: *d.BuyQuantity, Get: *d.GetQuantity, Product: *d.AppliedToProductID}, nil
	default:
		return nil, fmt.Errorf("unknown discount type %q", d.DiscountType)
	}
}
