package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemByVariation(ctx context.Context, cartID, variationID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	FindVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, *models.Product, error)
	VariationsWithProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariation, map[uuid.UUID]models.Product, error)
	PreviewDiscounts(ctx context.Context, cartID uuid.UUID, shopIDs, productIDs []uuid.UUID) ([]models.Discount, error)
}
