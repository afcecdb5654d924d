package shops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/db"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/slug"
)

const ownerConstraint = "shops_owner_id_key"

type shopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
}

// Service exposes shop operations.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input CreateShopInput) (*ShopDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ShopDTO, error)
	GetMine(ctx context.Context, actor access.Actor) (*ShopDTO, error)
}

type service struct {
	repo shopRepository
}

// NewService builds a shop service with the provided repository.
func NewService(repo shopRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateShopInput) (*ShopDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can open a shop")
	}
	if actor.ShopID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller already owns a shop")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	shopSlug := slug.Make(name)
	if shopSlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must contain letters or digits")
	}
	taken, err := s.repo.SlugTaken(ctx, shopSlug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
	}
	if taken {
		shopSlug = slug.WithSuffix(name)
	}

	shop := &models.Shop{
		OwnerID:     actor.UserID,
		Name:        name,
		Slug:        shopSlug,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, shop); err != nil {
		if db.IsUniqueViolation(err, ownerConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "seller already owns a shop")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shop")
	}
	return FromModel(shop), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ShopDTO, error) {
	shop, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(shop), nil
}

func (s *service) GetMine(ctx context.Context, actor access.Actor) (*ShopDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	shop, err := s.repo.FindByOwner(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no shop found for user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	return FromModel(shop), nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
}
