package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// CartDTO is the shopper's cart with line totals and the basket-level preview.
// Total is an estimate: placing an order charges the sum of effective unit
// prices times quantity and does not subtract Adjustments.
type CartDTO struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Items         []CartItemDTO   `json:"items"`
	ItemCount     int             `json:"item_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	Adjustments   []AdjustmentDTO `json:"adjustments"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CartItemDTO is one cart line. Price is the base unit price snapshot; the line
// is discounted when TotalDiscountPrice is set.
type CartItemDTO struct {
	ID                 uuid.UUID        `json:"id"`
	VariationID        uuid.UUID        `json:"variation_id"`
	ProductID          uuid.UUID        `json:"product_id"`
	ShopID             uuid.UUID        `json:"shop_id"`
	ProductName        string           `json:"product_name"`
	SKU                string           `json:"sku"`
	Quantity           int              `json:"quantity"`
	Price              decimal.Decimal  `json:"price"`
	DiscountPrice      *decimal.Decimal `json:"discount_price,omitempty"`
	TotalPrice         decimal.Decimal  `json:"total_price"`
	TotalDiscountPrice *decimal.Decimal `json:"total_discount_price,omitempty"`
	LineTotal          decimal.Decimal  `json:"line_total"`
	InStock            bool             `json:"in_stock"`
}

// AdjustmentDTO is a basket-level discount shown on the cart.
type AdjustmentDTO struct {
	DiscountID uuid.UUID          `json:"discount_id"`
	ShopID     uuid.UUID          `json:"shop_id"`
	Name       string             `json:"name"`
	Type       enums.DiscountType `json:"type"`
	Amount     decimal.Decimal    `json:"amount"`
}

// AddItemInput adds quantity units of a variation.
type AddItemInput struct {
	VariationID uuid.UUID
	Quantity    int
}

func adjustmentsFrom(in []pricing.CartAdjustment) []AdjustmentDTO {
	out := make([]AdjustmentDTO, 0, len(in))
	for _, adj := range in {
		out = append(out, AdjustmentDTO{
			DiscountID: adj.DiscountID,
			ShopID:     adj.ShopID,
			Name:       adj.Name,
			Type:       adj.Type,
			Amount:     adj.Amount,
		})
	}
	return out
}
