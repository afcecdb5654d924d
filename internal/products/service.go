package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/db"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

const skuConstraint = "product_variations_sku_key"

// ErrVersionConflict is returned when a variation changed between read and write.
var ErrVersionConflict = errors.New("variation was modified concurrently")

// Service exposes catalog management and the public browse operations.
type Service interface {
	CreateProduct(ctx context.Context, actor access.Actor, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	UpdateProduct(ctx context.Context, actor access.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) error

	AddVariation(ctx context.Context, actor access.Actor, productID uuid.UUID, input VariationInput) (*VariationDTO, error)
	UpdateVariation(ctx context.Context, actor access.Actor, variationID uuid.UUID, input UpdateVariationInput) (*VariationDTO, error)
	DeleteVariation(ctx context.Context, actor access.Actor, variationID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repricer interface {
	RepriceVariations(ctx context.Context, tx *gorm.DB, trigger pricing.Trigger, variationIDs []uuid.UUID) (pricing.Summary, error)
}

// service implements the product service.
type service struct {
	repo     *Repository
	tx       txRunner
	repricer repricer
	logg     *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, repricer repricer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repricer == nil {
		return nil, fmt.Errorf("repricer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, repricer: repricer, logg: logg}, nil
}

// CreateProduct creates the product with its variations and prices them against
// the discounts already covering the shop and category.
func (s *service) CreateProduct(ctx context.Context, actor access.Actor, input CreateProductInput) (*ProductDTO, error) {
	shopID, err := resolveShop(actor, input.ShopID)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireShop(shopID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category_id is required")
	}

	var createdID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		exists, err := txRepo.ShopExists(ctx, shopID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check shop")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		category, err := loadCategory(ctx, txRepo, input.CategoryID)
		if err != nil {
			return err
		}

		product := &models.Product{
			ShopID:      shopID,
			CategoryID:  category.ID,
			Name:        name,
			Description: trimmedOrNil(input.Description),
			IsActive:    input.IsActive == nil || *input.IsActive,
		}
		created, err := txRepo.CreateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID

		ids := make([]uuid.UUID, 0, len(input.Variations))
		for i, in := range input.Variations {
			variation, err := buildVariation(created.ID, category, in)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("variations[%d]", i)).
					WithDetails(map[string]any{"index": i})
			}
			if err := txRepo.CreateVariation(ctx, variation); err != nil {
				return mapVariationWriteError(err)
			}
			ids = append(ids, variation.ID)
		}
		return s.reprice(ctx, tx, ids)
	})
	if err != nil {
		return nil, wrapTxError(err, "create product")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"product_id": createdID.String(), "shop_id": shopID.String()})
	s.logg.Info(ctx, "product created")
	return s.loadDetail(ctx, createdID)
}

// GetProduct returns the product; inactive products are visible to their shop only.
func (s *service) GetProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		return nil, mapProductLookup(err)
	}
	if !product.IsActive && !actor.CanManageShop(product.ShopID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return NewProductDTO(product), nil
}

// ListProducts returns active products for the public listing endpoint.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	f := input.Filters
	if f.PriceMin != nil && f.PriceMax != nil && f.PriceMin.GreaterThan(*f.PriceMax) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min cannot exceed price_max")
	}
	page := input.Pagination.Normalize()
	input.Pagination = page

	rows, total, err := s.repo.ListActive(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	result := &ProductListResult{
		Products:   make([]ProductDTO, 0, len(rows)),
		Pagination: pagination.NewMeta(page, total),
		Filters:    f,
	}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

// UpdateProduct patches the product. Moving it to another category reprices all
// of its variations since category discounts may no longer apply.
func (s *service) UpdateProduct(ctx context.Context, actor access.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := s.loadOwnedProduct(ctx, txRepo, actor, productID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			product.Name = name
		}
		if input.Description != nil {
			product.Description = trimmedOrNil(input.Description)
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}

		recategorized := false
		if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
			if err := s.checkRecategorize(ctx, txRepo, product, *input.CategoryID); err != nil {
				return err
			}
			product.CategoryID = *input.CategoryID
			recategorized = true
		}

		if _, err := txRepo.UpdateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		if !recategorized {
			return nil
		}
		ids, err := txRepo.VariationIDs(ctx, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variations")
		}
		return s.reprice(ctx, tx, ids)
	})
	if err != nil {
		return nil, wrapTxError(err, "update product")
	}
	return s.loadDetail(ctx, productID)
}

// DeleteProduct removes the product with its variations, links and cart lines.
func (s *service) DeleteProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadOwnedProduct(ctx, txRepo, actor, productID); err != nil {
			return err
		}
		if err := txRepo.DeleteProduct(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return nil
	})
	if err != nil {
		return wrapTxError(err, "delete product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "product deleted")
	return nil
}

func (s *service) AddVariation(ctx context.Context, actor access.Actor, productID uuid.UUID, input VariationInput) (*VariationDTO, error) {
	var variation *models.ProductVariation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := s.loadOwnedProduct(ctx, txRepo, actor, productID)
		if err != nil {
			return err
		}
		category, err := loadCategory(ctx, txRepo, product.CategoryID)
		if err != nil {
			return err
		}
		variation, err = buildVariation(product.ID, category, input)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variation")
		}
		if err := txRepo.CreateVariation(ctx, variation); err != nil {
			return mapVariationWriteError(err)
		}
		if err := s.reprice(ctx, tx, []uuid.UUID{variation.ID}); err != nil {
			return err
		}
		variation, err = txRepo.FindVariation(ctx, variation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload variation")
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "add variation")
	}
	dto := NewVariationDTO(*variation)
	return &dto, nil
}

// UpdateVariation patches a variation; a price change recomputes its discount
// price and the cart lines holding it.
func (s *service) UpdateVariation(ctx context.Context, actor access.Actor, variationID uuid.UUID, input UpdateVariationInput) (*VariationDTO, error) {
	var variation *models.ProductVariation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		var err error
		variation, err = txRepo.FindVariation(ctx, variationID)
		if err != nil {
			return mapVariationLookup(err)
		}
		product, err := s.loadOwnedProduct(ctx, txRepo, actor, variation.ProductID)
		if err != nil {
			return err
		}

		priceChanged := false
		if input.SKU != nil {
			sku := strings.TrimSpace(*input.SKU)
			if sku == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
			}
			variation.SKU = sku
		}
		if input.Price != nil {
			if !input.Price.IsPositive() {
				return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
			}
			priceChanged = !input.Price.Equal(variation.Price)
			variation.Price = input.Price.Round(2)
		}
		if input.Stock != nil {
			if *input.Stock < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
			}
			variation.Stock = *input.Stock
		}
		if input.Attributes != nil {
			category, err := loadCategory(ctx, txRepo, product.CategoryID)
			if err != nil {
				return err
			}
			if err := checkAttributes(category, *input.Attributes); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid attributes")
			}
			variation.Attributes = *input.Attributes
		}

		if err := txRepo.UpdateVariation(ctx, variation); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "variation was modified, retry")
			}
			return mapVariationWriteError(err)
		}
		if !priceChanged {
			return nil
		}
		if err := s.reprice(ctx, tx, []uuid.UUID{variation.ID}); err != nil {
			return err
		}
		variation, err = txRepo.FindVariation(ctx, variation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload variation")
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "update variation")
	}
	dto := NewVariationDTO(*variation)
	return &dto, nil
}

func (s *service) DeleteVariation(ctx context.Context, actor access.Actor, variationID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		variation, err := txRepo.FindVariation(ctx, variationID)
		if err != nil {
			return mapVariationLookup(err)
		}
		if _, err := s.loadOwnedProduct(ctx, txRepo, actor, variation.ProductID); err != nil {
			return err
		}
		if err := txRepo.DeleteVariation(ctx, variationID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete variation")
		}
		return nil
	})
	if err != nil {
		return wrapTxError(err, "delete variation")
	}
	return nil
}

func (s *service) loadOwnedProduct(ctx context.Context, repo *Repository, actor access.Actor, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		return nil, mapProductLookup(err)
	}
	if err := actor.RequireShop(product.ShopID); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) checkRecategorize(ctx context.Context, repo *Repository, product *models.Product, categoryID uuid.UUID) error {
	next, err := loadCategory(ctx, repo, categoryID)
	if err != nil {
		return err
	}
	current, err := loadCategory(ctx, repo, product.CategoryID)
	if err != nil {
		return err
	}
	if next.AttributeKind == current.AttributeKind {
		return nil
	}
	ids, err := repo.VariationIDs(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variations")
	}
	if len(ids) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("category expects %s attributes but the product has %s variations", next.AttributeKind, current.AttributeKind))
	}
	return nil
}

func (s *service) reprice(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.repricer.RepriceVariations(ctx, tx, pricing.TriggerVariation, ids); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reprice variations")
	}
	return nil
}

func (s *service) loadDetail(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(product), nil
}

func loadCategory(ctx context.Context, repo *Repository, id uuid.UUID) (*models.ProductCategory, error) {
	category, err := repo.FindCategory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}

func buildVariation(productID uuid.UUID, category *models.ProductCategory, in VariationInput) (*models.ProductVariation, error) {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return nil, errors.New("sku is required")
	}
	if !in.Price.IsPositive() {
		return nil, errors.New("price must be greater than zero")
	}
	if in.Stock < 0 {
		return nil, errors.New("stock cannot be negative")
	}
	if err := checkAttributes(category, in.Attributes); err != nil {
		return nil, err
	}
	return &models.ProductVariation{
		ProductID:  productID,
		SKU:        sku,
		Price:      in.Price.Round(2),
		Stock:      in.Stock,
		Version:    1,
		Attributes: in.Attributes,
	}, nil
}

// checkAttributes requires the attribute variant to match the category schema.
func checkAttributes(category *models.ProductCategory, attrs types.VariationAttributes) error {
	if attrs.Attributes == nil {
		return errors.New("attributes are required")
	}
	if kind := attrs.Kind(); kind != category.AttributeKind {
		return fmt.Errorf("category %q expects %s attributes, got %s", category.Name, category.AttributeKind, kind)
	}
	return attrs.Validate()
}

func resolveShop(actor access.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil && *requested != uuid.Nil {
		return *requested, nil
	}
	if actor.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.IsAdmin() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "shop_id is required")
	}
	if !actor.IsSeller() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	return actor.OwnedShop()
}

func mapProductLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func mapVariationLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variation not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variation")
}

func mapVariationWriteError(err error) error {
	if db.IsUniqueViolation(err, skuConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: write variation")
}

func wrapTxError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
