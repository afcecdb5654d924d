package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

// ProductDTO represents a product with its variations.
type ProductDTO struct {
	ID          uuid.UUID      `json:"id"`
	ShopID      uuid.UUID      `json:"shop_id"`
	CategoryID  uuid.UUID      `json:"category_id"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	IsActive    bool           `json:"is_active"`
	Variations  []VariationDTO `json:"variations"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// VariationDTO exposes a purchasable SKU. DiscountPrice is set only while a
// discount covers the variation.
type VariationDTO struct {
	ID             uuid.UUID                 `json:"id"`
	ProductID      uuid.UUID                 `json:"product_id"`
	SKU            string                    `json:"sku"`
	Price          decimal.Decimal           `json:"price"`
	DiscountPrice  *decimal.Decimal          `json:"discount_price,omitempty"`
	EffectivePrice decimal.Decimal           `json:"effective_price"`
	OnSale         bool                      `json:"on_sale"`
	Stock          int                       `json:"stock"`
	Attributes     types.VariationAttributes `json:"attributes"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	ShopID      *uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description *string
	IsActive    *bool
	Variations  []VariationInput
}

// VariationInput describes one variation on creation.
type VariationInput struct {
	SKU        string
	Price      decimal.Decimal
	Stock      int
	Attributes types.VariationAttributes
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	CategoryID  *uuid.UUID
	IsActive    *bool
}

// UpdateVariationInput holds optional mutation values for a variation.
type UpdateVariationInput struct {
	SKU        *string
	Price      *decimal.Decimal
	Stock      *int
	Attributes *types.VariationAttributes
}

// NewProductDTO builds a DTO from the persisted model and its loaded variations.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:          product.ID,
		ShopID:      product.ShopID,
		CategoryID:  product.CategoryID,
		Name:        product.Name,
		Description: product.Description,
		IsActive:    product.IsActive,
		Variations:  make([]VariationDTO, 0, len(product.Variations)),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	for _, v := range product.Variations {
		dto.Variations = append(dto.Variations, NewVariationDTO(v))
	}
	return dto
}

// NewVariationDTO maps a variation.
func NewVariationDTO(v models.ProductVariation) VariationDTO {
	return VariationDTO{
		ID:             v.ID,
		ProductID:      v.ProductID,
		SKU:            v.SKU,
		Price:          v.Price,
		DiscountPrice:  v.DiscountPrice,
		EffectivePrice: v.EffectivePrice(),
		OnSale:         v.DiscountPrice != nil,
		Stock:          v.Stock,
		Attributes:     v.Attributes,
		UpdatedAt:      v.UpdatedAt,
	}
}
