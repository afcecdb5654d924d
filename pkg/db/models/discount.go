package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// Discount is a seller-owned pricing rule.
type Discount struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ShopID             uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;index:discounts_shop_id_idx"`
	Name               string              `gorm:"column:name;not null"`
	Description        *string             `gorm:"column:description"`
	DiscountType       enums.DiscountType  `gorm:"column:discount_type;type:varchar(16);not null"`
	DiscountScope      enums.DiscountScope `gorm:"column:discount_scope;type:varchar(16);not null"`
	Value              decimal.Decimal     `gorm:"column:value;type:numeric(12,2);not null"`
	MinPurchase        *decimal.Decimal    `gorm:"column:min_purchase;type:numeric(12,2)"`
	MinItems           *int                `gorm:"column:min_items"`
	UsageLimit         *int                `gorm:"column:usage_limit"`
	StartDate          time.Time           `gorm:"column:start_date;not null"`
	EndDate            *time.Time          `gorm:"column:end_date"`
	IsActive           bool                `gorm:"column:is_active;not null;index:discounts_is_active_idx"`
	AllowStacking      bool                `gorm:"column:allow_stacking;not null"`
	Priority           int                 `gorm:"column:priority;not null"`
	BuyQuantity        *int                `gorm:"column:buy_quantity"`
	GetQuantity        *int                `gorm:"column:get_quantity"`
	AppliedToProductID *uuid.UUID          `gorm:"column:applied_to_product_id;type:uuid"`
	AutoApply          bool                `gorm:"column:auto_apply;not null"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Discount) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// ActiveAt reports whether the discount is enabled and inside its validity window.
func (d Discount) ActiveAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.StartDate.After(now) {
		return false
	}
	if d.EndDate != nil && d.EndDate.Before(now) {
		return false
	}
	return true
}

// ProductVariationDiscount links a PRODUCT-scoped discount to a variation.
type ProductVariationDiscount struct {
	DiscountID         uuid.UUID `gorm:"column:discount_id;type:uuid;primaryKey"`
	ProductVariationID uuid.UUID `gorm:"column:product_variation_id;type:uuid;primaryKey;index:pvd_variation_id_idx"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

// CategoryDiscount links a CATEGORY-scoped discount to a category.
type CategoryDiscount struct {
	DiscountID uuid.UUID `gorm:"column:discount_id;type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;primaryKey;index:category_discounts_category_id_idx"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// CartDiscount links a CART-scoped discount to a cart.
type CartDiscount struct {
	DiscountID uuid.UUID `gorm:"column:discount_id;type:uuid;primaryKey"`
	CartID     uuid.UUID `gorm:"column:cart_id;type:uuid;primaryKey;index:cart_discounts_cart_id_idx"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
