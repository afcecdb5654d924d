package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUser loads the cart of userID.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// Ensure returns the user's cart, creating it on first use. A concurrent insert is
// absorbed by the unique user index.
func (r *Repository) Ensure(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := r.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := &models.Cart{UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(created).Error; err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

// ListItems returns the lines of a cart in insertion order.
func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindItem loads a line restricted to the cart.
func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByVariation loads the line holding variationID, if any.
func (r *Repository) FindItemByVariation(ctx context.Context, cartID, variationID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_variation_id = ?", cartID, variationID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem removes a line and reports how many rows went away.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// ClearItems empties the cart; the cart row itself is kept.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// FindVariation loads a variation with its product.
func (r *Repository) FindVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, *models.Product, error) {
	db := r.db.WithContext(ctx)
	var variation models.ProductVariation
	if err := db.First(&variation, "id = ?", id).Error; err != nil {
		return nil, nil, err
	}
	var product models.Product
	if err := db.First(&product, "id = ?", variation.ProductID).Error; err != nil {
		return nil, nil, err
	}
	return &variation, &product, nil
}

// VariationsWithProducts batch-loads the variations behind cart lines and their products.
func (r *Repository) VariationsWithProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariation, map[uuid.UUID]models.Product, error) {
	variations := make(map[uuid.UUID]models.ProductVariation, len(ids))
	products := make(map[uuid.UUID]models.Product)
	if len(ids) == 0 {
		return variations, products, nil
	}
	db := r.db.WithContext(ctx)
	var rows []models.ProductVariation
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	productIDs := make([]uuid.UUID, 0, len(rows))
	for _, v := range rows {
		variations[v.ID] = v
		productIDs = append(productIDs, v.ProductID)
	}
	var productRows []models.Product
	if len(productIDs) > 0 {
		if err := db.Where("id IN ?", productIDs).Find(&productRows).Error; err != nil {
			return nil, nil, err
		}
	}
	for _, p := range productRows {
		products[p.ID] = p
	}
	return variations, products, nil
}

// PreviewDiscounts loads the discounts the cart preview evaluates: CART discounts
// linked to the cart, auto-applied CART discounts of the shops in it, and BUY_X_GET_Y
// discounts targeting one of its products.
func (r *Repository) PreviewDiscounts(ctx context.Context, cartID uuid.UUID, shopIDs, productIDs []uuid.UUID) ([]models.Discount, error) {
	var discounts []models.Discount
	q := r.db.WithContext(ctx).Model(&models.Discount{}).Where("is_active = ?", true)

	cond := r.db.Where("discount_scope = ? AND id IN (?)", enums.DiscountScopeCart,
		r.db.Model(&models.CartDiscount{}).Select("discount_id").Where("cart_id = ?", cartID))
	if len(shopIDs) > 0 {
		cond = cond.Or("discount_scope = ? AND auto_apply = ? AND shop_id IN ?", enums.DiscountScopeCart, true, shopIDs)
	}
	if len(productIDs) > 0 {
		cond = cond.Or("discount_type = ? AND applied_to_product_id IN ?", enums.DiscountTypeBuyXGetY, productIDs)
	}
	if err := q.Where(cond).Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}
