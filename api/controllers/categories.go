package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/api/middleware"
	"github.com/angelmondragon/threadmart-backend/api/responses"
	"github.com/angelmondragon/threadmart-backend/api/validators"
	"github.com/angelmondragon/threadmart-backend/internal/categories"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

type createCategoryRequest struct {
	Name          string     `json:"name" validate:"required,max=120"`
	ParentID      *uuid.UUID `json:"parent_id,omitempty"`
	AttributeKind string     `json:"attribute_kind" validate:"required,oneof=tshirt pant shoe shirt jacket undergarment generic"`
}

// CategoryTree returns every root category with its nested children.
func CategoryTree(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		tree, err := svc.Tree(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, tree)
	}
}

func AdminCategoryCreate(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		category, err := svc.Create(ctx, middleware.ActorFromContext(ctx), categories.CreateCategoryInput{
			Name:          strings.TrimSpace(payload.Name),
			ParentID:      payload.ParentID,
			AttributeKind: enums.AttributeKind(payload.AttributeKind),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}
