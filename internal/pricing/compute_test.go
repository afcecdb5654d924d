package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func discount(kind enums.DiscountType, value string, priority int, stacking bool) models.Discount {
	return models.Discount{
		ID:            uuid.New(),
		DiscountType:  kind,
		DiscountScope: enums.DiscountScopeProduct,
		Value:         decimal.RequireFromString(value),
		StartDate:     testNow.Add(-24 * time.Hour),
		IsActive:      true,
		AllowStacking: stacking,
		Priority:      priority,
		CreatedAt:     testNow.Add(-48 * time.Hour),
	}
}

func TestComputePercentage(t *testing.T) {
	res := Compute(decimal.NewFromInt(1000), []models.Discount{discount(enums.DiscountTypePercentage, "10", 1, false)}, testNow)
	if res.DiscountPrice == nil || !res.DiscountPrice.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("expected 900, got %v", res.DiscountPrice)
	}
}

func TestComputeFixedAmountClampsAtZero(t *testing.T) {
	res := Compute(decimal.RequireFromString("15.00"), []models.Discount{discount(enums.DiscountTypeFixedAmount, "20", 1, false)}, testNow)
	if res.DiscountPrice == nil || !res.DiscountPrice.IsZero() {
		t.Fatalf("expected 0, got %v", res.DiscountPrice)
	}

	res = Compute(decimal.RequireFromString("15.00"), []models.Discount{discount(enums.DiscountTypeFixedAmount, "2.5", 1, false)}, testNow)
	if !res.DiscountPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected 12.50, got %v", res.DiscountPrice)
	}
}

func TestComputeRoundsToCents(t *testing.T) {
	res := Compute(decimal.RequireFromString("19.99"), []models.Discount{discount(enums.DiscountTypePercentage, "15", 1, false)}, testNow)
	// 19.99 * 0.85 = 16.9915
	if !res.DiscountPrice.Equal(decimal.RequireFromString("16.99")) {
		t.Fatalf("expected 16.99, got %v", res.DiscountPrice)
	}
}

func TestComputeNoDiscounts(t *testing.T) {
	if res := Compute(decimal.NewFromInt(50), nil, testNow); res.DiscountPrice != nil {
		t.Fatalf("expected nil discount price, got %v", res.DiscountPrice)
	}
}

func TestComputeIgnoresInactiveAndOutOfWindow(t *testing.T) {
	inactive := discount(enums.DiscountTypePercentage, "10", 1, false)
	inactive.IsActive = false
	future := discount(enums.DiscountTypePercentage, "10", 1, false)
	future.StartDate = testNow.Add(time.Hour)
	expired := discount(enums.DiscountTypePercentage, "10", 1, false)
	ended := testNow.Add(-time.Minute)
	expired.EndDate = &ended
	shipping := discount(enums.DiscountTypePercentage, "10", 1, false)
	shipping.DiscountScope = enums.DiscountScopeShipping

	res := Compute(decimal.NewFromInt(100), []models.Discount{inactive, future, expired, shipping}, testNow)
	if res.DiscountPrice != nil {
		t.Fatalf("expected no discount, got %v", res.DiscountPrice)
	}
}

func TestComputeStacking(t *testing.T) {
	first := discount(enums.DiscountTypePercentage, "10", 1, true)
	second := discount(enums.DiscountTypeFixedAmount, "5", 2, true)

	res := Compute(decimal.NewFromInt(100), []models.Discount{second, first}, testNow)
	// 100 -> 90 -> 85
	if !res.DiscountPrice.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("expected 85, got %v", res.DiscountPrice)
	}
	if len(res.Applied) != 2 || res.Applied[0] != first.ID {
		t.Fatalf("expected both discounts applied in priority order, got %v", res.Applied)
	}
}

func TestComputeStopsWhenStackingNotAllowed(t *testing.T) {
	first := discount(enums.DiscountTypePercentage, "10", 1, false)
	second := discount(enums.DiscountTypeFixedAmount, "5", 2, true)

	res := Compute(decimal.NewFromInt(100), []models.Discount{first, second}, testNow)
	if !res.DiscountPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected 90, got %v", res.DiscountPrice)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("expected one applied discount, got %d", len(res.Applied))
	}
}

func buyGet(priority int, stacking bool) models.Discount {
	buy, get := 2, 1
	product := uuid.New()
	d := discount(enums.DiscountTypeBuyXGetY, "1", priority, stacking)
	d.BuyQuantity = &buy
	d.GetQuantity = &get
	d.AppliedToProductID = &product
	return d
}

func TestComputeBuyXGetYLeavesChainIntact(t *testing.T) {
	cases := map[string]struct {
		bogoStacks bool
		pctStacks  bool
	}{
		"both stack":         {true, true},
		"neither stacks":     {false, false},
		"only bogo stacks":   {true, false},
		"only percent stack": {false, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			bogo := buyGet(1, tc.bogoStacks)
			pct := discount(enums.DiscountTypePercentage, "10", 2, tc.pctStacks)

			res := Compute(decimal.NewFromInt(1000), []models.Discount{bogo, pct}, testNow)
			if res.DiscountPrice == nil || !res.DiscountPrice.Equal(decimal.NewFromInt(900)) {
				t.Fatalf("expected 900, got %v", res.DiscountPrice)
			}
			if len(res.Applied) != 1 || res.Applied[0] != pct.ID {
				t.Fatalf("expected only the percentage applied, got %v", res.Applied)
			}
			if len(res.Skipped) != 1 || res.Skipped[0] != bogo.ID {
				t.Fatalf("expected buy x get y skipped, got %v", res.Skipped)
			}
		})
	}
}

func TestComputeBuyXGetYBetweenStackedRules(t *testing.T) {
	first := discount(enums.DiscountTypePercentage, "10", 1, true)
	bogo := buyGet(2, false)
	second := discount(enums.DiscountTypeFixedAmount, "50", 3, true)

	res := Compute(decimal.NewFromInt(1000), []models.Discount{second, bogo, first}, testNow)
	if res.DiscountPrice == nil || !res.DiscountPrice.Equal(decimal.NewFromInt(850)) {
		t.Fatalf("expected 850, got %v", res.DiscountPrice)
	}
}

func TestComputeOnlyBuyXGetYLeavesPriceUnset(t *testing.T) {
	res := Compute(decimal.NewFromInt(100), []models.Discount{buyGet(1, true)}, testNow)
	if res.DiscountPrice != nil {
		t.Fatalf("buy x get y leaves unit price unchanged, got %v", res.DiscountPrice)
	}
}

func TestSortByPriorityTieBreaks(t *testing.T) {
	a := discount(enums.DiscountTypePercentage, "10", 1, false)
	b := discount(enums.DiscountTypePercentage, "10", 1, false)
	b.CreatedAt = a.CreatedAt.Add(-time.Minute)
	c := discount(enums.DiscountTypePercentage, "10", 0, false)

	list := []models.Discount{a, b, c}
	SortByPriority(list)
	if list[0].ID != c.ID || list[1].ID != b.ID || list[2].ID != a.ID {
		t.Fatalf("unexpected order %v %v %v", list[0].Priority, list[1].CreatedAt, list[2].CreatedAt)
	}
}

func TestRuleForValidates(t *testing.T) {
	cases := []struct {
		name string
		d    models.Discount
	}{
		{"percentage over 100", discount(enums.DiscountTypePercentage, "120", 1, false)},
		{"percentage zero", discount(enums.DiscountTypePercentage, "0", 1, false)},
		{"fixed negative", discount(enums.DiscountTypeFixedAmount, "-1", 1, false)},
		{"bxgy missing fields", discount(enums.DiscountTypeBuyXGetY, "1", 1, false)},
		{"unknown type", discount(enums.DiscountType("BOGUS"), "1", 1, false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := RuleFor(tc.d); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuyXGetYFreeUnits(t *testing.T) {
	rule := BuyXGetY{Buy: 2, Get: 1}
	for qty, want := range map[int]int{1: 0, 3: 1, 5: 1, 6: 2, 9: 3} {
		if got := rule.FreeUnits(qty); got != want {
			t.Fatalf("qty %d: expected %d free, got %d", qty, want, got)
		}
	}
}

func TestLineTotals(t *testing.T) {
	discounted := decimal.RequireFromString("8.50")
	total, totalDiscount := LineTotals(decimal.NewFromInt(10), &discounted, 3)
	if !total.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected total 30, got %s", total)
	}
	if totalDiscount == nil || !totalDiscount.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("expected discount total 25.5, got %v", totalDiscount)
	}
	if _, none := LineTotals(decimal.NewFromInt(10), nil, 3); none != nil {
		t.Fatal("expected nil discount total without discount price")
	}
}
