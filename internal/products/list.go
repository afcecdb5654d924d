package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	ShopID     *uuid.UUID       `json:"shop_id,omitempty"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	OnSale     *bool            `json:"on_sale,omitempty"`
	PriceMin   *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax   *decimal.Decimal `json:"price_max,omitempty"`
	Query      string           `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter active products.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Products   []ProductDTO       `json:"products"`
	Pagination pagination.Meta    `json:"pagination"`
	Filters    ProductListFilters `json:"filters"`
}
