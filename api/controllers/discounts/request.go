package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	discountsvc "github.com/angelmondragon/threadmart-backend/internal/discounts"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

type createDiscountRequest struct {
	ShopID             *uuid.UUID       `json:"shop_id,omitempty"`
	Name               string           `json:"name" validate:"required,max=255"`
	Description        *string          `json:"description,omitempty"`
	DiscountType       string           `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT BUY_X_GET_Y"`
	DiscountScope      string           `json:"discount_scope" validate:"required,oneof=CART PRODUCT SHIPPING CATEGORY"`
	Value              decimal.Decimal  `json:"value"`
	MinPurchase        *decimal.Decimal `json:"min_purchase,omitempty"`
	MinItems           *int             `json:"min_items,omitempty" validate:"omitempty,gte=0"`
	UsageLimit         *int             `json:"usage_limit,omitempty" validate:"omitempty,gte=1"`
	StartDate          *time.Time       `json:"start_date,omitempty"`
	EndDate            *time.Time       `json:"end_date,omitempty"`
	IsActive           *bool            `json:"is_active,omitempty"`
	AllowStacking      *bool            `json:"allow_stacking,omitempty"`
	Priority           *int             `json:"priority,omitempty" validate:"omitempty,gte=0"`
	BuyQuantity        *int             `json:"buy_quantity,omitempty" validate:"omitempty,gte=1"`
	GetQuantity        *int             `json:"get_quantity,omitempty" validate:"omitempty,gte=1"`
	AppliedToProductID *uuid.UUID       `json:"applied_to_product_id,omitempty"`
	AutoApply          *bool            `json:"auto_apply,omitempty"`
}

func (r createDiscountRequest) toInput() discountsvc.CreateInput {
	return discountsvc.CreateInput{
		ShopID:             r.ShopID,
		Name:               r.Name,
		Description:        r.Description,
		DiscountType:       enums.DiscountType(r.DiscountType),
		DiscountScope:      enums.DiscountScope(r.DiscountScope),
		Value:              r.Value,
		MinPurchase:        r.MinPurchase,
		MinItems:           r.MinItems,
		UsageLimit:         r.UsageLimit,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		IsActive:           r.IsActive,
		AllowStacking:      r.AllowStacking,
		Priority:           r.Priority,
		BuyQuantity:        r.BuyQuantity,
		GetQuantity:        r.GetQuantity,
		AppliedToProductID: r.AppliedToProductID,
		AutoApply:          r.AutoApply,
	}
}

type updateDiscountRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string          `json:"description,omitempty"`
	Value         *decimal.Decimal `json:"value,omitempty"`
	MinPurchase   *decimal.Decimal `json:"min_purchase,omitempty"`
	MinItems      *int             `json:"min_items,omitempty" validate:"omitempty,gte=0"`
	UsageLimit    *int             `json:"usage_limit,omitempty" validate:"omitempty,gte=1"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
	AllowStacking *bool            `json:"allow_stacking,omitempty"`
	Priority      *int             `json:"priority,omitempty" validate:"omitempty,gte=0"`
	AutoApply     *bool            `json:"auto_apply,omitempty"`
}

func (r updateDiscountRequest) toInput() discountsvc.UpdateInput {
	return discountsvc.UpdateInput{
		Name:          r.Name,
		Description:   r.Description,
		Value:         r.Value,
		MinPurchase:   r.MinPurchase,
		MinItems:      r.MinItems,
		UsageLimit:    r.UsageLimit,
		EndDate:       r.EndDate,
		IsActive:      r.IsActive,
		AllowStacking: r.AllowStacking,
		Priority:      r.Priority,
		AutoApply:     r.AutoApply,
	}
}

type variationIDsRequest struct {
	VariationIDs []uuid.UUID `json:"variation_ids" validate:"required,min=1"`
}

type categoryIDsRequest struct {
	CategoryIDs []uuid.UUID `json:"category_ids" validate:"required,min=1"`
}

type cartRequest struct {
	CartID uuid.UUID `json:"cart_id" validate:"required"`
}
