package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// Repository defines persistence operations for orders and the rows checkout touches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LoadVariations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariation, map[uuid.UUID]models.Product, error)
	CartLines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	DecrementStock(ctx context.Context, variationID uuid.UUID, quantity int) (bool, error)
	RestoreStock(ctx context.Context, variationID uuid.UUID, quantity int) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	List(ctx context.Context, q ListQuery) ([]models.Order, int64, error)
}
