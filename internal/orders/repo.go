package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

// ListQuery narrows an order listing. UserID scopes it to one shopper.
type ListQuery struct {
	UserID     *uuid.UUID
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the orders repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LoadVariations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariation, map[uuid.UUID]models.Product, error) {
	variations := make(map[uuid.UUID]models.ProductVariation, len(ids))
	products := make(map[uuid.UUID]models.Product)
	if len(ids) == 0 {
		return variations, products, nil
	}
	db := r.db.WithContext(ctx)
	var rows []models.ProductVariation
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("load variations: %w", err)
	}
	productIDs := make([]uuid.UUID, 0, len(rows))
	for _, v := range rows {
		variations[v.ID] = v
		productIDs = append(productIDs, v.ProductID)
	}
	if len(productIDs) == 0 {
		return variations, products, nil
	}
	var productRows []models.Product
	if err := db.Where("id IN ?", productIDs).Find(&productRows).Error; err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	for _, p := range productRows {
		products[p.ID] = p
	}
	return variations, products, nil
}

// CartLines returns the lines of the user's cart, oldest first.
func (r *repository) CartLines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Order("cart_items.created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items", "Payment").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// DecrementStock takes quantity units when at least that many are left and bumps
// the variation version. It reports false when the guard did not match.
func (r *repository) DecrementStock(ctx context.Context, variationID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariation{}).
		Where("id = ? AND stock >= ?", variationID, quantity).
		Updates(map[string]any{
			"stock":   gorm.Expr("stock - ?", quantity),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock puts units back, e.g. when an order is cancelled. Variations deleted
// since the order was placed are skipped.
func (r *repository) RestoreStock(ctx context.Context, variationID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariation{}).
		Where("id = ?", variationID).
		Updates(map[string]any{
			"stock":   gorm.Expr("stock + ?", quantity),
			"version": gorm.Expr("version + 1"),
		}).Error
}

func (r *repository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	return db.
		Where("cart_id IN (?)", db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Payment").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus moves the order from one status to another; false means the order
// was no longer in from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List pages through orders, newest first.
func (r *repository) List(ctx context.Context, q ListQuery) ([]models.Order, int64, error) {
	page := q.Pagination.Normalize()
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	var orders []models.Order
	err := query.
		Preload("Items").
		Preload("Payment").
		Order("created_at DESC").
		Order("id ASC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}
