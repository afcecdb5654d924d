package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/internal/cart"
)

type addItemRequest struct {
	VariationID uuid.UUID `json:"variation_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
}

func (r addItemRequest) toInput() cart.AddItemInput {
	return cart.AddItemInput{VariationID: r.VariationID, Quantity: r.Quantity}
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}
