package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the shopper cart.
type Service interface {
	Get(ctx context.Context, actor access.Actor) (*CartDTO, error)
	AddItem(ctx context.Context, actor access.Actor, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, actor access.Actor, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, actor access.Actor, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, actor access.Actor) error
}

type service struct {
	repo CartRepository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor) (*CartDTO, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	cart, err := s.repo.Ensure(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.view(ctx, cart)
}

// AddItem adds units of a variation, merging into the existing line when the
// variation is already in the cart.
func (s *service) AddItem(ctx context.Context, actor access.Actor, input AddItemInput) (*CartDTO, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if input.VariationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variation_id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		cart, err = repo.Ensure(ctx, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		variation, product, err := loadPurchasable(ctx, repo, input.VariationID)
		if err != nil {
			return err
		}

		item, err := repo.FindItemByVariation(ctx, cart.ID, variation.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = &models.CartItem{CartID: cart.ID, ProductVariationID: variation.ID}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		quantity := item.Quantity + input.Quantity
		if err := checkStock(variation, product, quantity); err != nil {
			return err
		}
		applyPricing(item, variation, quantity)

		if item.ID == uuid.Nil {
			err = repo.CreateItem(ctx, item)
		} else {
			err = repo.SaveItem(ctx, item)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// UpdateItem sets the quantity of a line and re-snapshots its price.
func (s *service) UpdateItem(ctx context.Context, actor access.Actor, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		cart, err = s.ownCart(ctx, repo, actor)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		variation, product, err := loadPurchasable(ctx, repo, item.ProductVariationID)
		if err != nil {
			return err
		}
		if err := checkStock(variation, product, quantity); err != nil {
			return err
		}
		applyPricing(item, variation, quantity)
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, actor access.Actor, itemID uuid.UUID) (*CartDTO, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	cart, err := s.ownCart(ctx, s.repo, actor)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	if removed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.view(ctx, cart)
}

func (s *service) Clear(ctx context.Context, actor access.Actor) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	cart, err := s.repo.FindByUser(ctx, actor.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.logg.Debug(s.logg.WithField(ctx, "cart_id", cart.ID.String()), "cart cleared")
	return nil
}

func (s *service) ownCart(ctx context.Context, repo CartRepository, actor access.Actor) (*models.Cart, error) {
	cart, err := repo.FindByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// view assembles the cart lines and evaluates basket-level discounts on them.
func (s *service) view(ctx context.Context, cart *models.Cart) (*CartDTO, error) {
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	variationIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		variationIDs = append(variationIDs, item.ProductVariationID)
	}
	variations, products, err := s.repo.VariationsWithProducts(ctx, variationIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart variations")
	}

	dto := &CartDTO{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]CartItemDTO, 0, len(items)),
		UpdatedAt: cart.UpdatedAt,
	}
	lines := make([]pricing.CartLine, 0, len(items))
	seenShops := make(map[uuid.UUID]struct{})
	seenProducts := make(map[uuid.UUID]struct{})
	var shopIDs, productIDs []uuid.UUID
	for _, item := range items {
		variation := variations[item.ProductVariationID]
		product := products[variation.ProductID]
		dto.Items = append(dto.Items, CartItemDTO{
			ID:                 item.ID,
			VariationID:        item.ProductVariationID,
			ProductID:          product.ID,
			ShopID:             product.ShopID,
			ProductName:        product.Name,
			SKU:                variation.SKU,
			Quantity:           item.Quantity,
			Price:              item.Price,
			DiscountPrice:      variation.DiscountPrice,
			TotalPrice:         item.TotalPrice,
			TotalDiscountPrice: item.TotalDiscountPrice,
			LineTotal:          item.LineTotal(),
			InStock:            variation.Stock >= item.Quantity,
		})
		dto.ItemCount += item.Quantity

		lines = append(lines, pricing.CartLine{
			ProductID: product.ID,
			ShopID:    product.ShopID,
			Quantity:  item.Quantity,
			UnitPrice: variation.EffectivePrice(),
			LineTotal: item.LineTotal(),
		})
		if _, ok := seenShops[product.ShopID]; !ok {
			seenShops[product.ShopID] = struct{}{}
			shopIDs = append(shopIDs, product.ShopID)
		}
		if _, ok := seenProducts[product.ID]; !ok {
			seenProducts[product.ID] = struct{}{}
			productIDs = append(productIDs, product.ID)
		}
	}

	var discounts []models.Discount
	if len(lines) > 0 {
		discounts, err = s.repo.PreviewDiscounts(ctx, cart.ID, shopIDs, productIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart discounts")
		}
	}
	preview := pricing.PreviewCart(lines, discounts, s.now().UTC())
	dto.Subtotal = preview.Subtotal
	dto.DiscountTotal = preview.DiscountTotal
	dto.Total = preview.Total
	dto.Adjustments = adjustmentsFrom(preview.Adjustments)
	return dto, nil
}

func loadPurchasable(ctx context.Context, repo CartRepository, variationID uuid.UUID) (*models.ProductVariation, *models.Product, error) {
	variation, product, err := repo.FindVariation(ctx, variationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "variation not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variation")
	}
	if !product.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not available")
	}
	return variation, product, nil
}

func checkStock(variation *models.ProductVariation, product *models.Product, quantity int) error {
	if quantity <= variation.Stock {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", product.Name)).
		WithDetails(map[string]any{
			"variation_id": variation.ID,
			"product":      product.Name,
			"requested":    quantity,
			"available":    variation.Stock,
		})
}

// applyPricing snapshots the base price and derives both line totals.
func applyPricing(item *models.CartItem, variation *models.ProductVariation, quantity int) {
	total, totalDiscount := pricing.LineTotals(variation.Price, variation.DiscountPrice, quantity)
	item.Quantity = quantity
	item.Price = variation.Price
	item.TotalPrice = total
	item.TotalDiscountPrice = totalDiscount
}

func requireUser(actor access.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
