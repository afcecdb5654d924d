package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// CartLine is one basket line as the cart evaluation sees it. LineTotal already
// reflects the variation discount price.
type CartLine struct {
	ProductID uuid.UUID
	ShopID    uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// CartAdjustment is a basket-level reduction granted by one discount.
type CartAdjustment struct {
	DiscountID uuid.UUID
	ShopID     uuid.UUID
	Name       string
	Type       enums.DiscountType
	Amount     decimal.Decimal
}

// CartPreview is the basket total after basket-level discounts. It is display
// only; order totals are built from effective unit prices.
type CartPreview struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
	Adjustments   []CartAdjustment
}

// PreviewCart evaluates BUY_X_GET_Y and CART discounts against the basket. Each shop
// is evaluated on its own lines: buy/get rewards first, then the CART chain on what
// is left, following the same priority and stacking rules as variation pricing.
func PreviewCart(lines []CartLine, discounts []models.Discount, now time.Time) CartPreview {
	preview := CartPreview{Subtotal: decimal.Zero, DiscountTotal: decimal.Zero}
	type shopBasket struct {
		subtotal decimal.Decimal
		items    int
	}
	baskets := make(map[uuid.UUID]*shopBasket)
	var shopOrder []uuid.UUID
	for _, line := range lines {
		preview.Subtotal = preview.Subtotal.Add(line.LineTotal)
		b, ok := baskets[line.ShopID]
		if !ok {
			b = &shopBasket{subtotal: decimal.Zero}
			baskets[line.ShopID] = b
			shopOrder = append(shopOrder, line.ShopID)
		}
		b.subtotal = b.subtotal.Add(line.LineTotal)
		b.items += line.Quantity
	}

	byShop := make(map[uuid.UUID][]models.Discount)
	for _, d := range discounts {
		if d.ActiveAt(now) {
			byShop[d.ShopID] = append(byShop[d.ShopID], d)
		}
	}

	for _, shopID := range shopOrder {
		basket := baskets[shopID]
		remaining := basket.subtotal

		var cartChain []models.Discount
		for _, d := range byShop[shopID] {
			switch {
			case d.DiscountType == enums.DiscountTypeBuyXGetY:
				amount := buyGetAmount(d, lines)
				if amount.IsPositive() {
					amount = decimal.Min(amount, remaining)
					remaining = remaining.Sub(amount)
					preview.Adjustments = append(preview.Adjustments, adjustment(d, amount))
				}
			case d.DiscountScope == enums.DiscountScopeCart:
				if _, ok := unitRule(d); ok {
					cartChain = append(cartChain, d)
				}
			}
		}

		SortByPriority(cartChain)
		var prev *models.Discount
		prevApplied := false
		for i := range cartChain {
			d := cartChain[i]
			if prev != nil && !(prevApplied && prev.AllowStacking && d.AllowStacking) {
				break
			}
			amount, ok := cartAmount(d, basket.subtotal, basket.items, remaining)
			if ok {
				remaining = remaining.Sub(amount)
				preview.Adjustments = append(preview.Adjustments, adjustment(d, amount))
			}
			prev = &cartChain[i]
			prevApplied = ok
		}
	}

	for _, adj := range preview.Adjustments {
		preview.DiscountTotal = preview.DiscountTotal.Add(adj.Amount)
	}
	preview.Total = preview.Subtotal.Sub(preview.DiscountTotal)
	return preview
}

// cartAmount returns the reduction a CART discount grants on remaining once its
// thresholds are met by the shop basket.
func cartAmount(d models.Discount, subtotal decimal.Decimal, items int, remaining decimal.Decimal) (decimal.Decimal, bool) {
	if d.MinPurchase != nil && subtotal.LessThan(*d.MinPurchase) {
		return decimal.Zero, false
	}
	if d.MinItems != nil && items < *d.MinItems {
		return decimal.Zero, false
	}
	rule, err := RuleFor(d)
	if err != nil {
		return decimal.Zero, false
	}
	after, ok := rule.Apply(remaining)
	if !ok {
		return decimal.Zero, false
	}
	amount := remaining.Sub(after).Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// buyGetAmount values the free units of the target product at its cheapest unit price.
func buyGetAmount(d models.Discount, lines []CartLine) decimal.Decimal {
	rule, err := RuleFor(d)
	if err != nil {
		return decimal.Zero
	}
	bxgy, ok := rule.(BuyXGetY)
	if !ok {
		return decimal.Zero
	}
	quantity := 0
	var cheapest *decimal.Decimal
	for _, line := range lines {
		if line.ProductID != bxgy.Product || line.ShopID != d.ShopID {
			continue
		}
		quantity += line.Quantity
		price := line.UnitPrice
		if cheapest == nil || price.LessThan(*cheapest) {
			cheapest = &price
		}
	}
	free := bxgy.FreeUnits(quantity)
	if free == 0 || cheapest == nil {
		return decimal.Zero
	}
	return cheapest.Mul(decimal.NewFromInt(int64(free))).Round(2)
}

func adjustment(d models.Discount, amount decimal.Decimal) CartAdjustment {
	return CartAdjustment{
		DiscountID: d.ID,
		ShopID:     d.ShopID,
		Name:       d.Name,
		Type:       d.DiscountType,
		Amount:     amount,
	}
}
