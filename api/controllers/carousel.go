package controllers

import (
	"net/http"

	"github.com/angelmondragon/threadmart-backend/api/middleware"
	"github.com/angelmondragon/threadmart-backend/api/responses"
	"github.com/angelmondragon/threadmart-backend/api/validators"
	"github.com/angelmondragon/threadmart-backend/internal/carousel"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

const carouselIDParam = "itemId"

type createCarouselItemRequest struct {
	Title    string  `json:"title" validate:"required,max=160"`
	Subtitle *string `json:"subtitle,omitempty" validate:"omitempty,max=255"`
	ImageURL string  `json:"image_url" validate:"required,url"`
	LinkURL  *string `json:"link_url,omitempty" validate:"omitempty,url"`
	Position *int    `json:"position,omitempty" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type updateCarouselItemRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=160"`
	Subtitle *string `json:"subtitle,omitempty" validate:"omitempty,max=255"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
	LinkURL  *string `json:"link_url,omitempty" validate:"omitempty,url"`
	Position *int    `json:"position,omitempty" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// CarouselPublic lists the active home slides in display order.
func CarouselPublic(svc carousel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carousel service unavailable"))
			return
		}

		items, err := svc.ListPublic(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func AdminCarouselList(svc carousel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carousel service unavailable"))
			return
		}

		items, err := svc.ListAll(ctx, middleware.ActorFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func AdminCarouselCreate(svc carousel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carousel service unavailable"))
			return
		}

		var payload createCarouselItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := svc.Create(ctx, middleware.ActorFromContext(ctx), carousel.CreateItemInput{
			Title:    payload.Title,
			Subtitle: payload.Subtitle,
			ImageURL: payload.ImageURL,
			LinkURL:  payload.LinkURL,
			Position: payload.Position,
			IsActive: payload.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func AdminCarouselUpdate(svc carousel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carousel service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, carouselIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateCarouselItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := svc.Update(ctx, middleware.ActorFromContext(ctx), id, carousel.UpdateItemInput{
			Title:    payload.Title,
			Subtitle: payload.Subtitle,
			ImageURL: payload.ImageURL,
			LinkURL:  payload.LinkURL,
			Position: payload.Position,
			IsActive: payload.IsActive,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AdminCarouselDelete(svc carousel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carousel service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, carouselIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, middleware.ActorFromContext(ctx), id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
