package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

// DiscountDTO is the API shape of a discount.
type DiscountDTO struct {
	ID                 uuid.UUID           `json:"id"`
	ShopID             uuid.UUID           `json:"shop_id"`
	Name               string              `json:"name"`
	Description        *string             `json:"description,omitempty"`
	DiscountType       enums.DiscountType  `json:"discount_type"`
	DiscountScope      enums.DiscountScope `json:"discount_scope"`
	Value              decimal.Decimal     `json:"value"`
	MinPurchase        *decimal.Decimal    `json:"min_purchase,omitempty"`
	MinItems           *int                `json:"min_items,omitempty"`
	UsageLimit         *int                `json:"usage_limit,omitempty"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            *time.Time          `json:"end_date,omitempty"`
	IsActive           bool                `json:"is_active"`
	CurrentlyActive    bool                `json:"currently_active"`
	AllowStacking      bool                `json:"allow_stacking"`
	Priority           int                 `json:"priority"`
	BuyQuantity        *int                `json:"buy_quantity,omitempty"`
	GetQuantity        *int                `json:"get_quantity,omitempty"`
	AppliedToProductID *uuid.UUID          `json:"applied_to_product_id,omitempty"`
	AutoApply          bool                `json:"auto_apply"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// FromModel maps the persisted discount into a DTO, evaluating its window at now.
func FromModel(m *models.Discount, now time.Time) *DiscountDTO {
	if m == nil {
		return nil
	}
	return &DiscountDTO{
		ID:                 m.ID,
		ShopID:             m.ShopID,
		Name:               m.Name,
		Description:        m.Description,
		DiscountType:       m.DiscountType,
		DiscountScope:      m.DiscountScope,
		Value:              m.Value,
		MinPurchase:        m.MinPurchase,
		MinItems:           m.MinItems,
		UsageLimit:         m.UsageLimit,
		StartDate:          m.StartDate,
		EndDate:            m.EndDate,
		IsActive:           m.IsActive,
		CurrentlyActive:    m.ActiveAt(now),
		AllowStacking:      m.AllowStacking,
		Priority:           m.Priority,
		BuyQuantity:        m.BuyQuantity,
		GetQuantity:        m.GetQuantity,
		AppliedToProductID: m.AppliedToProductID,
		AutoApply:          m.AutoApply,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// CreateInput carries the fields accepted on creation. Nil pointers take defaults.
type CreateInput struct {
	ShopID             *uuid.UUID
	Name               string
	Description        *string
	DiscountType       enums.DiscountType
	DiscountScope      enums.DiscountScope
	Value              decimal.Decimal
	MinPurchase        *decimal.Decimal
	MinItems           *int
	UsageLimit         *int
	StartDate          *time.Time
	EndDate            *time.Time
	IsActive           *bool
	AllowStacking      *bool
	Priority           *int
	BuyQuantity        *int
	GetQuantity        *int
	AppliedToProductID *uuid.UUID
	AutoApply          *bool
}

// UpdateInput lists the mutable fields. Type, scope, shop and window start are fixed.
type UpdateInput struct {
	Name          *string
	Description   *string
	Value         *decimal.Decimal
	MinPurchase   *decimal.Decimal
	MinItems      *int
	UsageLimit    *int
	EndDate       *time.Time
	IsActive      *bool
	AllowStacking *bool
	Priority      *int
	AutoApply     *bool
}

// AssociationResult reports the effect of linking or unlinking targets.
type AssociationResult struct {
	DiscountID uuid.UUID `json:"discount_id"`
	Changed    int64     `json:"changed"`
	Repriced   int       `json:"repriced_variations"`
	CartItems  int       `json:"cart_items_updated"`
}

// RepriceResult reports an explicit reprice.
type RepriceResult struct {
	DiscountID uuid.UUID `json:"discount_id"`
	Variations int       `json:"variations"`
	Changed    int       `json:"changed"`
	CartItems  int       `json:"cart_items_updated"`
}

// ListFilters narrow a discount listing.
type ListFilters struct {
	IsActive      *bool                `json:"is_active,omitempty"`
	Search        string               `json:"search,omitempty"`
	DiscountType  *enums.DiscountType  `json:"discount_type,omitempty"`
	DiscountScope *enums.DiscountScope `json:"discount_scope,omitempty"`
	ShopID        *uuid.UUID           `json:"shop_id,omitempty"`
}

// ListParams is a page request plus filters.
type ListParams struct {
	Page    pagination.Params
	Filters ListFilters
}

// ListMeta extends page metadata with active/inactive counts of the scoped query.
type ListMeta struct {
	pagination.Meta
	ActiveCount   int64 `json:"active_count"`
	InactiveCount int64 `json:"inactive_count"`
}

// ListResult is returned by SellerList and AdminList.
type ListResult struct {
	Discounts []DiscountDTO `json:"discounts"`
	Metadata  ListMeta      `json:"metadata"`
	Filters   ListFilters   `json:"filters"`
}
