package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// RepricingReason says why a discount's variations need to be repriced.
type RepricingReason string

const (
	RepricingReasonUpdated RepricingReason = "updated"
	RepricingReasonToggled RepricingReason = "toggled"
	RepricingReasonManual  RepricingReason = "manual"
)

// DiscountRepriceRequestedEvent asks the pricing worker to reprice a discount.
type DiscountRepriceRequestedEvent struct {
	DiscountID uuid.UUID       `json:"discount_id"`
	ShopID     uuid.UUID       `json:"shop_id"`
	Reason     RepricingReason `json:"reason"`
	IsActive   bool            `json:"is_active"`
}

// DiscountDeletedEvent records a discount deletion and the variations it touched.
type DiscountDeletedEvent struct {
	DiscountID   uuid.UUID   `json:"discount_id"`
	ShopID       uuid.UUID   `json:"shop_id"`
	VariationIDs []uuid.UUID `json:"variation_ids"`
}

// VariationRepricedEvent is emitted whenever the engine changes a discounted price.
type VariationRepricedEvent struct {
	VariationID       uuid.UUID        `json:"variation_id"`
	Price             decimal.Decimal  `json:"price"`
	DiscountPrice     *decimal.Decimal `json:"discount_price,omitempty"`
	CartItemsAffected int              `json:"cart_items_affected"`
}

// OrderCreatedEvent signals a placed order.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	ShopIDs   []uuid.UUID     `json:"shop_ids"`
}

// OrderStatusChangedEvent is emitted on every admin status transition.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changed_at"`
}

// PaymentStatusChangedEvent is emitted when a payment moves between states.
type PaymentStatusChangedEvent struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	OrderID   uuid.UUID           `json:"order_id"`
	From      enums.PaymentStatus `json:"from"`
	To        enums.PaymentStatus `json:"to"`
}
