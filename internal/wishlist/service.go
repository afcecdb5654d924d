package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	product "github.com/angelmondragon/threadmart-backend/internal/products"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	ProductRepo  *product.Repository
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, actor access.Actor, params pagination.Params) (WishlistItemsPageDTO, error)
	GetWishlistIDs(ctx context.Context, actor access.Actor) (WishlistIDsDTO, error)
	AddItem(ctx context.Context, actor access.Actor, productID uuid.UUID) error
	RemoveItem(ctx context.Context, actor access.Actor, productID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	productRepo  *product.Repository
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		productRepo:  params.ProductRepo,
	}, nil
}

// GetWishlist returns the paginated wishlist of the caller.
func (s *service) GetWishlist(ctx context.Context, actor access.Actor, params pagination.Params) (WishlistItemsPageDTO, error) {
	if err := requireUser(actor); err != nil {
		return WishlistItemsPageDTO{}, err
	}
	params = params.Normalize()
	items, products, total, err := s.wishlistRepo.ListItems(ctx, actor.UserID, params)
	if err != nil {
		return WishlistItemsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	page := WishlistItemsPageDTO{
		Items:      make([]WishlistItemDTO, 0, len(items)),
		Pagination: pagination.NewMeta(params, total),
	}
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		page.Items = append(page.Items, WishlistItemDTO{
			Product:   *product.NewProductDTO(&p),
			CreatedAt: item.CreatedAt,
		})
	}
	return page, nil
}

// GetWishlistIDs returns all liked product IDs for the caller.
func (s *service) GetWishlistIDs(ctx context.Context, actor access.Actor) (WishlistIDsDTO, error) {
	if err := requireUser(actor); err != nil {
		return WishlistIDsDTO{}, err
	}
	ids, err := s.wishlistRepo.ProductIDs(ctx, actor.UserID)
	if err != nil {
		return WishlistIDsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist ids")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return WishlistIDsDTO{ProductIDs: ids}, nil
}

// AddItem ensures the product exists and adds it to the wishlist.
func (s *service) AddItem(ctx context.Context, actor access.Actor, productID uuid.UUID) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !p.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.wishlistRepo.AddItem(ctx, actor.UserID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, actor access.Actor, productID uuid.UUID) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if err := s.wishlistRepo.RemoveItem(ctx, actor.UserID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func requireUser(actor access.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
