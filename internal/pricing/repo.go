package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

// Repository reads the discount graph and writes derived prices. Every method runs on
// the caller's transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to pricing queries.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LoadVariations returns the variations with the category of their product.
func (r *Repository) LoadVariations(tx *gorm.DB, ids []uuid.UUID) ([]models.ProductVariation, map[uuid.UUID]uuid.UUID, error) {
	if tx == nil {
		return nil, nil, gorm.ErrInvalidTransaction
	}
	if len(ids) == 0 {
		return nil, map[uuid.UUID]uuid.UUID{}, nil
	}
	var variations []models.ProductVariation
	if err := tx.Where("id IN ?", ids).Order("id").Find(&variations).Error; err != nil {
		return nil, nil, err
	}
	productIDs := make([]uuid.UUID, 0, len(variations))
	seen := map[uuid.UUID]struct{}{}
	for _, v := range variations {
		if _, ok := seen[v.ProductID]; ok {
			continue
		}
		seen[v.ProductID] = struct{}{}
		productIDs = append(productIDs, v.ProductID)
	}
	var products []models.Product
	if len(productIDs) > 0 {
		if err := tx.Select("id", "category_id").Where("id IN ?", productIDs).Find(&products).Error; err != nil {
			return nil, nil, err
		}
	}
	categoryByProduct := make(map[uuid.UUID]uuid.UUID, len(products))
	for _, p := range products {
		categoryByProduct[p.ID] = p.CategoryID
	}
	return variations, categoryByProduct, nil
}

// DiscountsCovering returns, per variation id, every discount linked to it directly or
// through its product's category.
func (r *Repository) DiscountsCovering(tx *gorm.DB, variations []models.ProductVariation, categoryByProduct map[uuid.UUID]uuid.UUID) (map[uuid.UUID][]models.Discount, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	out := make(map[uuid.UUID][]models.Discount, len(variations))
	if len(variations) == 0 {
		return out, nil
	}

	variationIDs := make([]uuid.UUID, 0, len(variations))
	categoryIDs := make([]uuid.UUID, 0)
	seenCategory := map[uuid.UUID]struct{}{}
	for _, v := range variations {
		variationIDs = append(variationIDs, v.ID)
		if cat, ok := categoryByProduct[v.ProductID]; ok {
			if _, dup := seenCategory[cat]; !dup {
				seenCategory[cat] = struct{}{}
				categoryIDs = append(categoryIDs, cat)
			}
		}
	}

	var variationLinks []models.ProductVariationDiscount
	if err := tx.Where("product_variation_id IN ?", variationIDs).Find(&variationLinks).Error; err != nil {
		return nil, err
	}
	var categoryLinks []models.CategoryDiscount
	if len(categoryIDs) > 0 {
		if err := tx.Where("category_id IN ?", categoryIDs).Find(&categoryLinks).Error; err != nil {
			return nil, err
		}
	}

	discountIDs := make([]uuid.UUID, 0, len(variationLinks)+len(categoryLinks))
	for _, l := range variationLinks {
		discountIDs = append(discountIDs, l.DiscountID)
	}
	for _, l := range categoryLinks {
		discountIDs = append(discountIDs, l.DiscountID)
	}
	if len(discountIDs) == 0 {
		return out, nil
	}
	var discounts []models.Discount
	if err := tx.Where("id IN ?", discountIDs).Find(&discounts).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Discount, len(discounts))
	for _, d := range discounts {
		byID[d.ID] = d
	}

	added := map[[2]uuid.UUID]struct{}{}
	add := func(variationID, discountID uuid.UUID) {
		d, ok := byID[discountID]
		if !ok {
			return
		}
		key := [2]uuid.UUID{variationID, discountID}
		if _, dup := added[key]; dup {
			return
		}
		added[key] = struct{}{}
		out[variationID] = append(out[variationID], d)
	}
	for _, l := range variationLinks {
		add(l.ProductVariationID, l.DiscountID)
	}
	categoryDiscounts := map[uuid.UUID][]uuid.UUID{}
	for _, l := range categoryLinks {
		categoryDiscounts[l.CategoryID] = append(categoryDiscounts[l.CategoryID], l.DiscountID)
	}
	shopByProduct, err := r.productShops(tx, variations)
	if err != nil {
		return nil, err
	}
	for _, v := range variations {
		cat, ok := categoryByProduct[v.ProductID]
		if !ok {
			continue
		}
		for _, discountID := range categoryDiscounts[cat] {
			// a category discount only reaches products of its own shop
			if byID[discountID].ShopID != shopByProduct[v.ProductID] {
				continue
			}
			add(v.ID, discountID)
		}
	}
	return out, nil
}

// VariationIDsForDiscount returns every variation a discount reaches.
func (r *Repository) VariationIDsForDiscount(tx *gorm.DB, discountID uuid.UUID) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var direct []uuid.UUID
	if err := tx.Model(&models.ProductVariationDiscount{}).
		Where("discount_id = ?", discountID).
		Pluck("product_variation_id", &direct).Error; err != nil {
		return nil, err
	}

	var categoryIDs []uuid.UUID
	if err := tx.Model(&models.CategoryDiscount{}).
		Where("discount_id = ?", discountID).
		Pluck("category_id", &categoryIDs).Error; err != nil {
		return nil, err
	}
	var viaCategory []uuid.UUID
	if len(categoryIDs) > 0 {
		if err := tx.Model(&models.ProductVariation{}).
			Joins("JOIN products ON products.id = product_variations.product_id").
			Joins("JOIN discounts ON discounts.shop_id = products.shop_id").
			Where("discounts.id = ? AND products.category_id IN ?", discountID, categoryIDs).
			Pluck("product_variations.id", &viaCategory).Error; err != nil {
			return nil, err
		}
	}
	return uniqueIDs(direct, viaCategory), nil
}

func (r *Repository) productShops(tx *gorm.DB, variations []models.ProductVariation) (map[uuid.UUID]uuid.UUID, error) {
	productIDs := make([]uuid.UUID, 0, len(variations))
	for _, v := range variations {
		productIDs = append(productIDs, v.ProductID)
	}
	var products []models.Product
	if err := tx.Select("id", "shop_id").Where("id IN ?", uniqueIDs(productIDs)).Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]uuid.UUID, len(products))
	for _, p := range products {
		out[p.ID] = p.ShopID
	}
	return out, nil
}

// SetDiscountPrice writes the derived price; nil clears it.
func (r *Repository) SetDiscountPrice(tx *gorm.DB, variationID uuid.UUID, price *decimal.Decimal) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	var value any = gorm.Expr("NULL")
	if price != nil {
		value = *price
	}
	return tx.Model(&models.ProductVariation{}).
		Where("id = ?", variationID).
		Update("discount_price", value).Error
}

// CartItemsForVariations returns every open cart line of the variations.
func (r *Repository) CartItemsForVariations(tx *gorm.DB, variationIDs []uuid.UUID) ([]models.CartItem, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if len(variationIDs) == 0 {
		return nil, nil
	}
	var items []models.CartItem
	if err := tx.Where("product_variation_id IN ?", variationIDs).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateCartItemPricing rewrites the price snapshot of a cart line.
func (r *Repository) UpdateCartItemPricing(tx *gorm.DB, itemID uuid.UUID, price, total decimal.Decimal, totalDiscount *decimal.Decimal) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	var discountValue any = gorm.Expr("NULL")
	if totalDiscount != nil {
		discountValue = *totalDiscount
	}
	return tx.Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"price":                price,
			"total_price":          total,
			"total_discount_price": discountValue,
		}).Error
}

// DiscountsCrossingWindow returns pricing discounts whose start or end date falls in
// (from, to]. Those are the ones whose effect changed without a write.
func (r *Repository) DiscountsCrossingWindow(ctx context.Context, from, to time.Time, limit int) ([]models.Discount, error) {
	if limit <= 0 {
		limit = 200
	}
	var discounts []models.Discount
	err := r.db.WithContext(ctx).
		Where("discount_scope IN ?", []enums.DiscountScope{enums.DiscountScopeProduct, enums.DiscountScopeCategory}).
		Where("(start_date > ? AND start_date <= ?) OR (end_date > ? AND end_date <= ?)", from, to, from, to).
		Order("start_date ASC").
		Limit(limit).
		Find(&discounts).Error
	if err != nil {
		return nil, err
	}
	return discounts, nil
}

func uniqueIDs(groups ...[]uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := []uuid.UUID{}
	for _, group := range groups {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
