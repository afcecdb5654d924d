package pricing

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
)

// Result is the outcome of pricing one variation.
type Result struct {
	// DiscountPrice is nil when no discount changed the unit price.
	DiscountPrice *decimal.Decimal
	Applied       []uuid.UUID
	Skipped       []uuid.UUID
}

// Compute prices base against the discounts covering a variation. Only discounts that
// are active at now and price variations are considered. They run in priority order;
// after the first, each one runs only while the previous one applied and both allow
// stacking. BUY_X_GET_Y rows are reported as skipped and do not break the chain.
func Compute(base decimal.Decimal, discounts []models.Discount, now time.Time) Result {
	candidates := make([]models.Discount, 0, len(discounts))
	for _, d := range discounts {
		if d.DiscountScope.PricesVariations() && d.ActiveAt(now) {
			candidates = append(candidates, d)
		}
	}
	SortByPriority(candidates)

	var (
		result      Result
		current     = base
		transformed bool
		prev        *models.Discount
		prevApplied bool
	)
	for i := range candidates {
		d := candidates[i]
		rule, ok := unitRule(d)
		if !ok {
			result.Skipped = append(result.Skipped, d.ID)
			continue
		}
		if prev != nil && !(prevApplied && prev.AllowStacking && d.AllowStacking) {
			break
		}
		next, applied := rule.Apply(current)
		if applied {
			current = next
			transformed = true
			result.Applied = append(result.Applied, d.ID)
		} else {
			result.Skipped = append(result.Skipped, d.ID)
		}
		prev = &candidates[i]
		prevApplied = applied
	}

	if transformed {
		rounded := current.Round(2)
		result.DiscountPrice = &rounded
	}
	return result
}

// SortByPriority orders discounts by priority ascending, then creation time, then id.
func SortByPriority(discounts []models.Discount) {
	sort.SliceStable(discounts, func(i, j int) bool {
		a, b := discounts[i], discounts[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// LineTotals returns the cart line totals for a unit price and optional discounted price.
func LineTotals(price decimal.Decimal, discounted *decimal.Decimal, quantity int) (decimal.Decimal, *decimal.Decimal) {
	qty := decimal.NewFromInt(int64(quantity))
	total := price.Mul(qty)
	if discounted == nil {
		return total, nil
	}
	totalDiscount := discounted.Mul(qty)
	return total, &totalDiscount
}
