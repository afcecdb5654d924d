package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

func cartDiscount(shopID uuid.UUID, kind enums.DiscountType, value string, priority int, stacking bool) models.Discount {
	d := discount(kind, value, priority, stacking)
	d.ShopID = shopID
	d.DiscountScope = enums.DiscountScopeCart
	return d
}

func line(shopID, productID uuid.UUID, qty int, unit string) CartLine {
	price := decimal.RequireFromString(unit)
	return CartLine{
		ProductID: productID,
		ShopID:    shopID,
		Quantity:  qty,
		UnitPrice: price,
		LineTotal: price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !decimal.RequireFromString(want).Equal(got) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestPreviewCartPercentageOnShopBasket(t *testing.T) {
	shopA, shopB := uuid.New(), uuid.New()
	lines := []CartLine{
		line(shopA, uuid.New(), 2, "50"),
		line(shopB, uuid.New(), 1, "40"),
	}
	preview := PreviewCart(lines, []models.Discount{cartDiscount(shopA, enums.DiscountTypePercentage, "10", 1, false)}, testNow)

	requireAmount(t, "140", preview.Subtotal)
	requireAmount(t, "10", preview.DiscountTotal)
	requireAmount(t, "130", preview.Total)
	if len(preview.Adjustments) != 1 || preview.Adjustments[0].ShopID != shopA {
		t.Fatalf("expected one adjustment for shop A, got %+v", preview.Adjustments)
	}
}

func TestPreviewCartThresholds(t *testing.T) {
	shopID := uuid.New()
	lines := []CartLine{line(shopID, uuid.New(), 1, "30")}

	minPurchase := decimal.NewFromInt(50)
	byAmount := cartDiscount(shopID, enums.DiscountTypeFixedAmount, "5", 1, false)
	byAmount.MinPurchase = &minPurchase
	if got := PreviewCart(lines, []models.Discount{byAmount}, testNow); !got.DiscountTotal.IsZero() {
		t.Fatalf("min purchase not met, expected no discount, got %s", got.DiscountTotal)
	}

	minItems := 2
	byItems := cartDiscount(shopID, enums.DiscountTypeFixedAmount, "5", 1, false)
	byItems.MinItems = &minItems
	if got := PreviewCart(lines, []models.Discount{byItems}, testNow); !got.DiscountTotal.IsZero() {
		t.Fatalf("min items not met, expected no discount, got %s", got.DiscountTotal)
	}
}

func TestPreviewCartStackingChain(t *testing.T) {
	shopID := uuid.New()
	lines := []CartLine{line(shopID, uuid.New(), 1, "100")}
	discounts := []models.Discount{
		cartDiscount(shopID, enums.DiscountTypePercentage, "10", 1, true),
		cartDiscount(shopID, enums.DiscountTypeFixedAmount, "20", 2, true),
		cartDiscount(shopID, enums.DiscountTypeFixedAmount, "5", 3, false),
	}
	preview := PreviewCart(lines, discounts, testNow)

	// 100 -> 90 -> 70; the third does not stack
	requireAmount(t, "30", preview.DiscountTotal)
	if len(preview.Adjustments) != 2 {
		t.Fatalf("expected 2 adjustments, got %d", len(preview.Adjustments))
	}
}

func TestPreviewCartMalformedRowDoesNotBreakChain(t *testing.T) {
	shopID := uuid.New()
	lines := []CartLine{line(shopID, uuid.New(), 1, "100")}
	broken := cartDiscount(shopID, enums.DiscountTypePercentage, "150", 1, true)
	valid := cartDiscount(shopID, enums.DiscountTypePercentage, "10", 2, false)

	preview := PreviewCart(lines, []models.Discount{broken, valid}, testNow)

	requireAmount(t, "10", preview.DiscountTotal)
	if len(preview.Adjustments) != 1 || preview.Adjustments[0].DiscountID != valid.ID {
		t.Fatalf("expected only the valid discount, got %+v", preview.Adjustments)
	}
}

func TestPreviewCartFixedAmountNeverExceedsBasket(t *testing.T) {
	shopID := uuid.New()
	lines := []CartLine{line(shopID, uuid.New(), 1, "15")}
	preview := PreviewCart(lines, []models.Discount{cartDiscount(shopID, enums.DiscountTypeFixedAmount, "40", 1, false)}, testNow)
	requireAmount(t, "15", preview.DiscountTotal)
	requireAmount(t, "0", preview.Total)
}

func TestPreviewCartBuyXGetY(t *testing.T) {
	shopID, productID := uuid.New(), uuid.New()
	buy, get := 2, 1
	bxgy := discount(enums.DiscountTypeBuyXGetY, "1", 1, false)
	bxgy.ShopID = shopID
	bxgy.BuyQuantity = &buy
	bxgy.GetQuantity = &get
	bxgy.AppliedToProductID = &productID

	lines := []CartLine{
		line(shopID, productID, 4, "20"),
		line(shopID, productID, 2, "18"),
	}
	preview := PreviewCart(lines, []models.Discount{bxgy}, testNow)

	// 6 units, groups of 3 -> 2 free at the cheapest unit price
	requireAmount(t, "36", preview.DiscountTotal)
}

func TestPreviewCartSkipsInactive(t *testing.T) {
	shopID := uuid.New()
	d := cartDiscount(shopID, enums.DiscountTypePercentage, "50", 1, false)
	d.IsActive = false
	preview := PreviewCart([]CartLine{line(shopID, uuid.New(), 1, "10")}, []models.Discount{d}, testNow)
	if len(preview.Adjustments) != 0 {
		t.Fatalf("inactive discount applied: %+v", preview.Adjustments)
	}
}
