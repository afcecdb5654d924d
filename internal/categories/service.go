package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/slug"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.ProductCategory, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error)
	Create(ctx context.Context, category *models.ProductCategory) error
	SlugTaken(ctx context.Context, slug string) (bool, error)
}

// Service exposes the category tree and admin creation.
type Service interface {
	Tree(ctx context.Context) ([]*CategoryDTO, error)
	Create(ctx context.Context, actor access.Actor, input CreateCategoryInput) (*CategoryDTO, error)
}

type service struct {
	repo categoryRepository
}

// NewService builds the category service.
func NewService(repo categoryRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Tree(ctx context.Context) ([]*CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return BuildTree(rows), nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateCategoryInput) (*CategoryDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	kind := input.AttributeKind
	if input.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
		if kind == "" {
			kind = parent.AttributeKind
		}
	}
	if kind == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribute_kind is required for root categories")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid attribute_kind")
	}

	categorySlug := slug.Make(name)
	if categorySlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must contain letters or digits")
	}
	taken, err := s.repo.SlugTaken(ctx, categorySlug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
	}
	if taken {
		categorySlug = slug.WithSuffix(name)
	}

	category := &models.ProductCategory{
		ParentID:      input.ParentID,
		Name:          name,
		Slug:          categorySlug,
		AttributeKind: kind,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return fromModel(*category), nil
}
