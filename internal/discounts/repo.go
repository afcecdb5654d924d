package discounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
)

// Repository handles discount persistence and the three association tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to discount operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx inserts a discount.
func (r *Repository) CreateWithTx(tx *gorm.DB, discount *models.Discount) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if discount == nil {
		return fmt.Errorf("discount is required")
	}
	return tx.Create(discount).Error
}

// FindByID loads a discount.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.WithContext(ctx).First(&discount, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

// FindByIDWithTx loads a discount using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Discount, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var discount models.Discount
	if err := tx.First(&discount, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

// UpdateWithTx persists every column of the discount.
func (r *Repository) UpdateWithTx(tx *gorm.DB, discount *models.Discount) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if discount == nil {
		return fmt.Errorf("discount is required")
	}
	return tx.Save(discount).Error
}

// DeleteWithTx removes the discount and every association row pointing at it.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	for _, join := range []any{&models.ProductVariationDiscount{}, &models.CategoryDiscount{}, &models.CartDiscount{}} {
		if err := tx.Where("discount_id = ?", id).Delete(join).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.Discount{}, "id = ?", id).Error
}

// LinkedVariationIDs returns the variations directly linked to a discount.
func (r *Repository) LinkedVariationIDs(tx *gorm.DB, discountID uuid.UUID) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var ids []uuid.UUID
	err := tx.Model(&models.ProductVariationDiscount{}).
		Where("discount_id = ?", discountID).
		Pluck("product_variation_id", &ids).Error
	return ids, err
}

// VariationShops maps each existing variation id to the shop that sells it.
func (r *Repository) VariationShops(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	type row struct {
		ID     uuid.UUID
		ShopID uuid.UUID
	}
	var rows []row
	if len(ids) > 0 {
		if err := tx.Table("product_variations").
			Select("product_variations.id AS id, products.shop_id AS shop_id").
			Joins("JOIN products ON products.id = product_variations.product_id").
			Where("product_variations.id IN ?", ids).
			Scan(&rows).Error; err != nil {
			return nil, err
		}
	}
	out := make(map[uuid.UUID]uuid.UUID, len(rows))
	for _, r := range rows {
		out[r.ID] = r.ShopID
	}
	return out, nil
}

// LinkVariations inserts join rows, skipping pairs that already exist.
func (r *Repository) LinkVariations(tx *gorm.DB, discountID uuid.UUID, variationIDs []uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	if len(variationIDs) == 0 {
		return 0, nil
	}
	links := make([]models.ProductVariationDiscount, 0, len(variationIDs))
	for _, id := range variationIDs {
		links = append(links, models.ProductVariationDiscount{DiscountID: discountID, ProductVariationID: id})
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links)
	return res.RowsAffected, res.Error
}

// UnlinkVariations removes join rows.
func (r *Repository) UnlinkVariations(tx *gorm.DB, discountID uuid.UUID, variationIDs []uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	if len(variationIDs) == 0 {
		return 0, nil
	}
	res := tx.Where("discount_id = ? AND product_variation_id IN ?", discountID, variationIDs).
		Delete(&models.ProductVariationDiscount{})
	return res.RowsAffected, res.Error
}

// ExistingCategoryIDs returns the subset of ids that exist.
func (r *Repository) ExistingCategoryIDs(tx *gorm.DB, ids []uuid.UUID) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var found []uuid.UUID
	if len(ids) == 0 {
		return found, nil
	}
	err := tx.Model(&models.ProductCategory{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

// LinkCategories inserts category join rows, skipping duplicates.
func (r *Repository) LinkCategories(tx *gorm.DB, discountID uuid.UUID, categoryIDs []uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	links := make([]models.CategoryDiscount, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		links = append(links, models.CategoryDiscount{DiscountID: discountID, CategoryID: id})
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links)
	return res.RowsAffected, res.Error
}

// UnlinkCategories removes category join rows.
func (r *Repository) UnlinkCategories(tx *gorm.DB, discountID uuid.UUID, categoryIDs []uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	res := tx.Where("discount_id = ? AND category_id IN ?", discountID, categoryIDs).
		Delete(&models.CategoryDiscount{})
	return res.RowsAffected, res.Error
}

// ShopVariationIDsInCategories returns the shop's variations whose product sits in one
// of the categories.
func (r *Repository) ShopVariationIDsInCategories(tx *gorm.DB, shopID uuid.UUID, categoryIDs []uuid.UUID) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var ids []uuid.UUID
	if len(categoryIDs) == 0 {
		return ids, nil
	}
	err := tx.Model(&models.ProductVariation{}).
		Joins("JOIN products ON products.id = product_variations.product_id").
		Where("products.shop_id = ? AND products.category_id IN ?", shopID, categoryIDs).
		Pluck("product_variations.id", &ids).Error
	return ids, err
}

// CartExists reports whether the cart row exists.
func (r *Repository) CartExists(tx *gorm.DB, cartID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	var count int64
	if err := tx.Model(&models.Cart{}).Where("id = ?", cartID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LinkCart attaches a CART discount to a cart; an existing link is kept.
func (r *Repository) LinkCart(tx *gorm.DB, discountID, cartID uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	link := models.CartDiscount{DiscountID: discountID, CartID: cartID}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
	return res.RowsAffected, res.Error
}

// UnlinkCart detaches a CART discount from a cart.
func (r *Repository) UnlinkCart(tx *gorm.DB, discountID, cartID uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	res := tx.Where("discount_id = ? AND cart_id = ?", discountID, cartID).Delete(&models.CartDiscount{})
	return res.RowsAffected, res.Error
}

// ListQuery is the repository-level listing request.
type ListQuery struct {
	ShopID        *uuid.UUID
	IsActive      *bool
	Search        string
	DiscountType  *string
	DiscountScope *string
	Limit         int
	Offset        int
}

// ListPage is one page of discounts plus counts over the scoped query.
type ListPage struct {
	Discounts     []models.Discount
	Total         int64
	ActiveCount   int64
	InactiveCount int64
}

// List returns discounts ordered by priority ascending then creation time. Total
// honours every filter; the active/inactive counts ignore the IsActive filter.
func (r *Repository) List(ctx context.Context, q ListQuery) (*ListPage, error) {
	base := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.Discount{})
		if q.ShopID != nil {
			tx = tx.Where("shop_id = ?", *q.ShopID)
		}
		if q.DiscountType != nil {
			tx = tx.Where("discount_type = ?", *q.DiscountType)
		}
		if q.DiscountScope != nil {
			tx = tx.Where("discount_scope = ?", *q.DiscountScope)
		}
		if term := strings.TrimSpace(q.Search); term != "" {
			pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
			tx = tx.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\\'", pattern, pattern)
		}
		return tx
	}

	page := &ListPage{}
	if err := base().Where("is_active = ?", true).Count(&page.ActiveCount).Error; err != nil {
		return nil, fmt.Errorf("count active: %w", err)
	}
	if err := base().Where("is_active = ?", false).Count(&page.InactiveCount).Error; err != nil {
		return nil, fmt.Errorf("count inactive: %w", err)
	}

	filtered := base()
	if q.IsActive != nil {
		filtered = filtered.Where("is_active = ?", *q.IsActive)
	}
	if err := filtered.Count(&page.Total).Error; err != nil {
		return nil, fmt.Errorf("count discounts: %w", err)
	}

	rows := base()
	if q.IsActive != nil {
		rows = rows.Where("is_active = ?", *q.IsActive)
	}
	if err := rows.
		Order("priority ASC").
		Order("created_at ASC").
		Order("id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&page.Discounts).Error; err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	return page, nil
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

// ReachedVariationIDs returns the variations a discount currently prices: direct links
// plus the shop's variations in linked categories.
func (r *Repository) ReachedVariationIDs(tx *gorm.DB, discount *models.Discount) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	direct, err := r.LinkedVariationIDs(tx, discount.ID)
	if err != nil {
		return nil, err
	}
	var categoryIDs []uuid.UUID
	if err := tx.Model(&models.CategoryDiscount{}).
		Where("discount_id = ?", discount.ID).
		Pluck("category_id", &categoryIDs).Error; err != nil {
		return nil, err
	}
	viaCategory, err := r.ShopVariationIDsInCategories(tx, discount.ShopID, categoryIDs)
	if err != nil {
		return nil, err
	}
	return dedupe(append(direct, viaCategory...)), nil
}

// ShopExists reports whether the shop row exists.
func (r *Repository) ShopExists(tx *gorm.DB, shopID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	var count int64
	if err := tx.Model(&models.Shop{}).Where("id = ?", shopID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ProductInShop reports whether productID exists and belongs to shopID.
func (r *Repository) ProductInShop(tx *gorm.DB, productID, shopID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	var count int64
	if err := tx.Model(&models.Product{}).Where("id = ? AND shop_id = ?", productID, shopID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
