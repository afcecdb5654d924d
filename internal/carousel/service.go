// Package carousel manages the slides on the storefront home page. Images are
// uploaded elsewhere; slides only reference their public URL.
package carousel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
)

type carouselRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.CarouselItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CarouselItem, error)
	NextPosition(ctx context.Context) (int, error)
	Create(ctx context.Context, item *models.CarouselItem) error
	Save(ctx context.Context, item *models.CarouselItem) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service interface {
	ListPublic(ctx context.Context) ([]ItemDTO, error)
	ListAll(ctx context.Context, actor access.Actor) ([]ItemDTO, error)
	Create(ctx context.Context, actor access.Actor, input CreateItemInput) (*ItemDTO, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
}

type service struct {
	repo carouselRepository
}

func NewService(repo carouselRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("carousel repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListPublic(ctx context.Context) ([]ItemDTO, error) {
	return s.list(ctx, true)
}

func (s *service) ListAll(ctx context.Context, actor access.Actor) ([]ItemDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.list(ctx, false)
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateItemInput) (*ItemDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if err := checkURL("image_url", input.ImageURL); err != nil {
		return nil, err
	}
	if input.LinkURL != nil {
		if err := checkURL("link_url", *input.LinkURL); err != nil {
			return nil, err
		}
	}

	item := &models.CarouselItem{
		Title:    title,
		Subtitle: input.Subtitle,
		ImageURL: strings.TrimSpace(input.ImageURL),
		LinkURL:  input.LinkURL,
		IsActive: true,
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}
	if input.Position != nil {
		if *input.Position < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "position cannot be negative")
		}
		item.Position = *input.Position
	} else {
		next, err := s.repo.NextPosition(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve carousel position")
		}
		item.Position = next
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create carousel item")
	}
	dto := fromModel(*item)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookup(err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		item.Title = title
	}
	if input.Subtitle != nil {
		item.Subtitle = input.Subtitle
	}
	if input.ImageURL != nil {
		if err := checkURL("image_url", *input.ImageURL); err != nil {
			return nil, err
		}
		item.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.LinkURL != nil {
		if err := checkURL("link_url", *input.LinkURL); err != nil {
			return nil, err
		}
		item.LinkURL = input.LinkURL
	}
	if input.Position != nil {
		if *input.Position < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "position cannot be negative")
		}
		item.Position = *input.Position
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update carousel item")
	}
	dto := fromModel(*item)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete carousel item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "carousel item not found")
	}
	return nil
}

func (s *service) list(ctx context.Context, activeOnly bool) ([]ItemDTO, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list carousel")
	}
	out := make([]ItemDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be an absolute http(s) url", field))
	}
	return nil
}

func mapLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "carousel item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load carousel item")
}
