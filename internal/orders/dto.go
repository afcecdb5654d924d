package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

// LineInput asks for quantity units of a variation.
type LineInput struct {
	VariationID uuid.UUID
	Quantity    int
}

// CreateOrderInput is the checkout payload. With no Items the caller's cart is ordered.
type CreateOrderInput struct {
	Items           []LineInput
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	ShippingCost    decimal.Decimal
	Tax             decimal.Decimal
	Notes           *string
}

// ListParams filters an order listing.
type ListParams struct {
	Status     *enums.OrderStatus
	UserID     *uuid.UUID
	Pagination pagination.Params
}

// OrderDTO is an order with its frozen lines and payment.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.OrderStatus   `json:"status"`
	SubTotal        decimal.Decimal     `json:"sub_total"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	Tax             decimal.Decimal     `json:"tax"`
	Total           decimal.Decimal     `json:"total"`
	ShippingAddress types.Address       `json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []OrderItemDTO      `json:"items"`
	Payment         *PaymentSummary     `json:"payment,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	VariationID uuid.UUID       `json:"variation_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ShopID      uuid.UUID       `json:"shop_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type PaymentSummary struct {
	ID     uuid.UUID           `json:"id"`
	Amount decimal.Decimal     `json:"amount"`
	Method enums.PaymentMethod `json:"method"`
	Status enums.PaymentStatus `json:"status"`
}

// OrderListResult is one page of orders.
type OrderListResult struct {
	Orders     []OrderDTO      `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// FromModel maps an order with its preloaded items and payment.
func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		SubTotal:        order.SubTotal,
		ShippingCost:    order.ShippingCost,
		Tax:             order.Tax,
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		Notes:           order.Notes,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:          item.ID,
			VariationID: item.ProductVariationID,
			ProductID:   item.ProductID,
			ShopID:      item.ShopID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			Price:       item.Price,
			TotalPrice:  item.TotalPrice,
		})
	}
	if order.Payment != nil {
		dto.Payment = &PaymentSummary{
			ID:     order.Payment.ID,
			Amount: order.Payment.Amount,
			Method: order.Payment.Method,
			Status: order.Payment.Status,
		}
	}
	return dto
}
