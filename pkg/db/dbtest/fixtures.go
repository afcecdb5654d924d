package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

// MustCreateUser inserts a user with the given role.
func MustCreateUser(t *testing.T, tx *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email: fmt.Sprintf("tm_test_%s@example.com", uuid.NewString()),
		Name:  "Repo Tester",
		Role:  role,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCreateShop inserts an active shop owned by ownerID.
func MustCreateShop(t *testing.T, tx *gorm.DB, ownerID uuid.UUID) *models.Shop {
	t.Helper()
	shop := &models.Shop{
		OwnerID:  ownerID,
		Name:     "Repo Shop",
		Slug:     "shop-" + uuid.NewString()[:8],
		IsActive: true,
	}
	if err := tx.Create(shop).Error; err != nil {
		t.Fatalf("create shop: %v", err)
	}
	return shop
}

// MustCreateCategory inserts a category under parentID (nil for a root).
func MustCreateCategory(t *testing.T, tx *gorm.DB, parentID *uuid.UUID) *models.ProductCategory {
	t.Helper()
	category := &models.ProductCategory{
		ParentID:      parentID,
		Name:          "Tees",
		Slug:          "tees-" + uuid.NewString()[:8],
		AttributeKind: enums.AttributeKindTShirt,
	}
	if err := tx.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// MustCreateProduct inserts an active product.
func MustCreateProduct(t *testing.T, tx *gorm.DB, shopID, categoryID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		ShopID:     shopID,
		CategoryID: categoryID,
		Name:       "Heavyweight Tee",
		IsActive:   true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// MustCreateVariation inserts a t-shirt variation with the given price and stock.
func MustCreateVariation(t *testing.T, tx *gorm.DB, productID uuid.UUID, price string, stock int) *models.ProductVariation {
	t.Helper()
	attrs, err := types.NewVariationAttributes(types.TShirtAttributes{Size: "M", Color: "black"})
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	variation := &models.ProductVariation{
		ProductID:  productID,
		SKU:        "SKU-" + uuid.NewString()[:8],
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		Attributes: attrs,
	}
	if err := tx.Create(variation).Error; err != nil {
		t.Fatalf("create variation: %v", err)
	}
	return variation
}

// DiscountOption tweaks a discount before MustCreateDiscount inserts it.
type DiscountOption func(*models.Discount)

// MustCreateDiscount inserts an active PRODUCT percentage discount, adjusted by opts.
func MustCreateDiscount(t *testing.T, tx *gorm.DB, shopID uuid.UUID, opts ...DiscountOption) *models.Discount {
	t.Helper()
	discount := &models.Discount{
		ShopID:        shopID,
		Name:          "Spring sale",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountScope: enums.DiscountScopeProduct,
		Value:         decimal.NewFromInt(10),
		StartDate:     time.Now().UTC().Add(-time.Hour),
		IsActive:      true,
		Priority:      1,
	}
	for _, opt := range opts {
		opt(discount)
	}
	if err := tx.Create(discount).Error; err != nil {
		t.Fatalf("create discount: %v", err)
	}
	return discount
}

// MustLinkVariation links a discount to a variation.
func MustLinkVariation(t *testing.T, tx *gorm.DB, discountID, variationID uuid.UUID) {
	t.Helper()
	link := models.ProductVariationDiscount{DiscountID: discountID, ProductVariationID: variationID}
	if err := tx.Create(&link).Error; err != nil {
		t.Fatalf("link variation: %v", err)
	}
}

// MustCreateCart inserts a cart for userID with one line per variation.
func MustCreateCart(t *testing.T, tx *gorm.DB, userID uuid.UUID, lines map[*models.ProductVariation]int) *models.Cart {
	t.Helper()
	cart := &models.Cart{UserID: userID}
	if err := tx.Create(cart).Error; err != nil {
		t.Fatalf("create cart: %v", err)
	}
	for variation, qty := range lines {
		item := &models.CartItem{
			CartID:             cart.ID,
			ProductVariationID: variation.ID,
			Quantity:           qty,
			Price:              variation.Price,
			TotalPrice:         variation.Price.Mul(decimal.NewFromInt(int64(qty))),
		}
		if err := tx.Create(item).Error; err != nil {
			t.Fatalf("create cart item: %v", err)
		}
	}
	return cart
}

// WithValue sets the discount value.
func WithValue(v string) DiscountOption {
	return func(d *models.Discount) { d.Value = decimal.RequireFromString(v) }
}

// WithType sets the discount type.
func WithType(kind enums.DiscountType) DiscountOption {
	return func(d *models.Discount) { d.DiscountType = kind }
}

// WithScope sets the discount scope.
func WithScope(scope enums.DiscountScope) DiscountOption {
	return func(d *models.Discount) { d.DiscountScope = scope }
}

// WithPriority sets the priority.
func WithPriority(p int) DiscountOption {
	return func(d *models.Discount) { d.Priority = p }
}

// BuyGet turns the discount into a BUY_X_GET_Y on productID.
func BuyGet(buy, get int, productID uuid.UUID) DiscountOption {
	return func(d *models.Discount) {
		d.DiscountType = enums.DiscountTypeBuyXGetY
		d.BuyQuantity = &buy
		d.GetQuantity = &get
		d.AppliedToProductID = &productID
	}
}

// Stacking marks the discount as stackable.
func Stacking() DiscountOption {
	return func(d *models.Discount) { d.AllowStacking = true }
}

// Inactive creates the discount disabled.
func Inactive() DiscountOption {
	return func(d *models.Discount) { d.IsActive = false }
}

// WithWindow sets the validity window.
func WithWindow(start time.Time, end *time.Time) DiscountOption {
	return func(d *models.Discount) {
		d.StartDate = start
		d.EndDate = end
	}
}

// Named sets name and description.
func Named(name string, description *string) DiscountOption {
	return func(d *models.Discount) {
		d.Name = name
		d.Description = description
	}
}
