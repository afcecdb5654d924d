package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

// Product groups purchasable variations under a shop and a category.
type Product struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ShopID      uuid.UUID          `gorm:"column:shop_id;type:uuid;not null;index:products_shop_id_idx"`
	CategoryID  uuid.UUID          `gorm:"column:category_id;type:uuid;not null;index:products_category_id_idx"`
	Name        string             `gorm:"column:name;not null"`
	Description *string            `gorm:"column:description"`
	IsActive    bool               `gorm:"column:is_active;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	Variations  []ProductVariation `gorm:"foreignKey:ProductID"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariation is a purchasable SKU. DiscountPrice is derived by the pricing
// engine and is nil unless an active discount covers the variation.
type ProductVariation struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index:product_variations_product_id_idx"`
	SKU           string                    `gorm:"column:sku;not null;uniqueIndex:product_variations_sku_key"`
	Price         decimal.Decimal           `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal          `gorm:"column:discount_price;type:numeric(12,2)"`
	Stock         int                       `gorm:"column:stock;not null"`
	Version       int                       `gorm:"column:version;not null"`
	Attributes    types.VariationAttributes `gorm:"column:attributes;type:jsonb"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariation) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// EffectivePrice is what a shopper pays per unit right now.
func (v ProductVariation) EffectivePrice() decimal.Decimal {
	if v.DiscountPrice != nil {
		return *v.DiscountPrice
	}
	return v.Price
}
