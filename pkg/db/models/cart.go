package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the single open cart of a shopper.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:carts_user_id_key"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	Items     []CartItem `gorm:"foreignKey:CartID"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem snapshots a variation's price. TotalPrice is always Price x Quantity;
// TotalDiscountPrice is set only while the variation carries a discount.
type CartItem struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID        `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_cart_variation_key,priority:1"`
	ProductVariationID uuid.UUID        `gorm:"column:product_variation_id;type:uuid;not null;uniqueIndex:cart_items_cart_variation_key,priority:2;index:cart_items_variation_id_idx"`
	Quantity           int              `gorm:"column:quantity;not null"`
	Price              decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	TotalPrice         decimal.Decimal  `gorm:"column:total_price;type:numeric(12,2);not null"`
	TotalDiscountPrice *decimal.Decimal `gorm:"column:total_discount_price;type:numeric(12,2)"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal is what the line costs right now.
func (i CartItem) LineTotal() decimal.Decimal {
	if i.TotalDiscountPrice != nil {
		return *i.TotalDiscountPrice
	}
	return i.TotalPrice
}
