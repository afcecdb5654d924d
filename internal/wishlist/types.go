package wishlist

import (
	"time"

	"github.com/google/uuid"

	product "github.com/angelmondragon/threadmart-backend/internal/products"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

// WishlistItemDTO wraps the product included in a wishlist row.
type WishlistItemDTO struct {
	Product   product.ProductDTO `json:"product"`
	CreatedAt time.Time          `json:"created_at"`
}

// WishlistItemsPageDTO is one page of liked products.
type WishlistItemsPageDTO struct {
	Items      []WishlistItemDTO `json:"items"`
	Pagination pagination.Meta   `json:"pagination"`
}

// WishlistIDsDTO lists the liked product ids, for heart toggles on listings.
type WishlistIDsDTO struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}
