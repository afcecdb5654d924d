package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
)

const effectivePriceExpr = "COALESCE(pv.discount_price, pv.price)"

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetail loads the product with its variations ordered by SKU.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("sku ASC") }).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindCategory loads the category a product is filed under.
func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error) {
	var category models.ProductCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ShopExists reports whether the shop row exists.
func (r *Repository) ShopExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Shop{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Variations").Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Variations").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes the product, its variations and every row pointing at them.
// Order items keep their snapshot.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	variationIDs, err := r.VariationIDs(ctx, id)
	if err != nil {
		return err
	}
	if err := r.deleteVariationRows(ctx, variationIDs); err != nil {
		return err
	}
	if err := db.Where("product_id = ?", id).Delete(&models.WishlistItem{}).Error; err != nil {
		return fmt.Errorf("delete wishlist items: %w", err)
	}
	return db.Delete(&models.Product{}, "id = ?", id).Error
}

// VariationIDs lists the variation ids of a product.
func (r *Repository) VariationIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariation{}).
		Where("product_id = ?", productID).
		Pluck("id", &ids).Error
	return ids, err
}

// CreateVariation inserts a variation.
func (r *Repository) CreateVariation(ctx context.Context, variation *models.ProductVariation) error {
	return r.db.WithContext(ctx).Create(variation).Error
}

// FindVariation loads a variation.
func (r *Repository) FindVariation(ctx context.Context, id uuid.UUID) (*models.ProductVariation, error) {
	var variation models.ProductVariation
	if err := r.db.WithContext(ctx).First(&variation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variation, nil
}

// UpdateVariation saves the editable columns of a variation and bumps its version.
// discount_price is owned by the pricing engine and is left untouched.
func (r *Repository) UpdateVariation(ctx context.Context, variation *models.ProductVariation) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariation{}).
		Where("id = ? AND version = ?", variation.ID, variation.Version).
		Updates(map[string]any{
			"sku":        variation.SKU,
			"price":      variation.Price,
			"stock":      variation.Stock,
			"attributes": variation.Attributes,
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	variation.Version++
	return nil
}

// DeleteVariation removes a variation and the rows pointing at it.
func (r *Repository) DeleteVariation(ctx context.Context, id uuid.UUID) error {
	return r.deleteVariationRows(ctx, []uuid.UUID{id})
}

func (r *Repository) deleteVariationRows(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("product_variation_id IN ?", ids).Delete(&models.ProductVariationDiscount{}).Error; err != nil {
		return fmt.Errorf("delete discount links: %w", err)
	}
	if err := db.Where("product_variation_id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	if err := db.Where("id IN ?", ids).Delete(&models.ProductVariation{}).Error; err != nil {
		return fmt.Errorf("delete variations: %w", err)
	}
	return nil
}

// ListActive pages through active products matching the filters, newest first.
func (r *Repository) ListActive(ctx context.Context, input ListProductsInput) ([]models.Product, int64, error) {
	page := input.Pagination.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("products.is_active = ?", true)

	f := input.Filters
	if f.ShopID != nil {
		q = q.Where("products.shop_id = ?", *f.ShopID)
	}
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(products.name) LIKE ? OR LOWER(COALESCE(products.description, '')) LIKE ?)", pattern, pattern)
	}
	if f.OnSale != nil {
		clause := "EXISTS (SELECT 1 FROM product_variations pv WHERE pv.product_id = products.id AND pv.discount_price IS NOT NULL)"
		if !*f.OnSale {
			clause = "NOT " + clause
		}
		q = q.Where(clause)
	}
	if f.PriceMin != nil {
		q = q.Where("EXISTS (SELECT 1 FROM product_variations pv WHERE pv.product_id = products.id AND "+effectivePriceExpr+" >= ?)", f.PriceMin.InexactFloat64())
	}
	if f.PriceMax != nil {
		q = q.Where("EXISTS (SELECT 1 FROM product_variations pv WHERE pv.product_id = products.id AND "+effectivePriceExpr+" <= ?)", f.PriceMax.InexactFloat64())
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	var products []models.Product
	err := q.
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("sku ASC") }).
		Order("products.created_at DESC").
		Order("products.id ASC").
		Limit(page.PageSize).
		Offset(page.Offset()).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}
