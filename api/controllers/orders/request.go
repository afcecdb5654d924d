package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ordersvc "github.com/angelmondragon/threadmart-backend/internal/orders"
	"github.com/angelmondragon/threadmart-backend/internal/payments"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

type orderLineRequest struct {
	VariationID uuid.UUID `json:"variation_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
}

// createOrderRequest orders the listed items, or the caller's cart when items is omitted.
type createOrderRequest struct {
	Items           []orderLineRequest `json:"items,omitempty" validate:"omitempty,dive"`
	ShippingAddress types.Address      `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method" validate:"required,oneof=card cash_on_delivery bank_transfer"`
	ShippingCost    *decimal.Decimal   `json:"shipping_cost,omitempty"`
	Tax             *decimal.Decimal   `json:"tax,omitempty"`
	Notes           *string            `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r createOrderRequest) toInput() ordersvc.CreateOrderInput {
	lines := make([]ordersvc.LineInput, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, ordersvc.LineInput{VariationID: item.VariationID, Quantity: item.Quantity})
	}
	input := ordersvc.CreateOrderInput{
		Items:           lines,
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   enums.PaymentMethod(r.PaymentMethod),
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		Notes:           r.Notes,
	}
	if r.ShippingCost != nil {
		input.ShippingCost = *r.ShippingCost
	}
	if r.Tax != nil {
		input.Tax = *r.Tax
	}
	return input
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

type updatePaymentStatusRequest struct {
	Status         string  `json:"status" validate:"required,oneof=pending completed failed refunded"`
	TransactionRef *string `json:"transaction_ref,omitempty" validate:"omitempty,max=255"`
}

func (r updatePaymentStatusRequest) toInput() payments.UpdateStatusInput {
	return payments.UpdateStatusInput{
		Status:         enums.PaymentStatus(r.Status),
		TransactionRef: r.TransactionRef,
	}
}
