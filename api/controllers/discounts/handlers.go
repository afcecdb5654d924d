package discounts

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/api/middleware"
	"github.com/angelmondragon/threadmart-backend/api/responses"
	"github.com/angelmondragon/threadmart-backend/api/validators"
	"github.com/angelmondragon/threadmart-backend/internal/access"
	discountsvc "github.com/angelmondragon/threadmart-backend/internal/discounts"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

const discountIDParam = "discountId"

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable")
}

func unavailableHandler(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, unavailable())
	}
}

// DiscountCreate creates a discount in the caller's shop (admins may name any shop).
func DiscountCreate(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable())
			return
		}

		var payload createDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Create(ctx, middleware.ActorFromContext(ctx), payload.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// DiscountGet returns one discount the caller may see.
func DiscountGet(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		dto, err := svc.Get(ctx, middleware.ActorFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	})
}

// DiscountUpdate patches the mutable fields and reprices affected variations.
func DiscountUpdate(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		var payload updateDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		dto, err := svc.Update(ctx, middleware.ActorFromContext(ctx), id, payload.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	})
}

func DiscountDelete(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		if err := svc.Delete(ctx, middleware.ActorFromContext(ctx), id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	})
}

func DiscountToggle(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		dto, err := svc.ToggleStatus(ctx, middleware.ActorFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	})
}

// DiscountReprice recalculates every variation linked to the discount.
func DiscountReprice(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		result, err := svc.Reprice(ctx, middleware.ActorFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	})
}

func DiscountAddVariations(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return variationAssociation(svc, logg, svc.AddVariationDiscounts)
}

func DiscountRemoveVariations(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return variationAssociation(svc, logg, svc.DeleteVariationDiscounts)
}

func DiscountAddCategories(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return categoryAssociation(svc, logg, svc.AddCategoryDiscounts)
}

func DiscountRemoveCategories(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return categoryAssociation(svc, logg, svc.DeleteCategoryDiscounts)
}

func DiscountAddCart(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return cartAssociation(svc, logg, svc.AddCartDiscount)
}

func DiscountRemoveCart(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return cartAssociation(svc, logg, svc.DeleteCartDiscount)
}

// DiscountSellerList lists discounts of the caller's shop.
func DiscountSellerList(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return listHandler(logg, svc.SellerList)
}

// DiscountAdminList lists discounts across shops, optionally filtered by shop_id.
func DiscountAdminList(svc discountsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg)
	}
	return listHandler(logg, svc.AdminList)
}

func withDiscountID(svc discountsvc.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		id, err := validators.ParseUUIDParam(r, discountIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next(w, r, id)
	}
}

func variationAssociation(svc discountsvc.Service, logg *logger.Logger, op func(ctx context.Context, actor access.Actor, id uuid.UUID, ids []uuid.UUID) (*discountsvc.AssociationResult, error)) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		var payload variationIDsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := op(ctx, middleware.ActorFromContext(ctx), id, payload.VariationIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	})
}

func categoryAssociation(svc discountsvc.Service, logg *logger.Logger, op func(ctx context.Context, actor access.Actor, id uuid.UUID, ids []uuid.UUID) (*discountsvc.AssociationResult, error)) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		var payload categoryIDsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := op(ctx, middleware.ActorFromContext(ctx), id, payload.CategoryIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	})
}

func cartAssociation(svc discountsvc.Service, logg *logger.Logger, op func(ctx context.Context, actor access.Actor, id, cartID uuid.UUID) (*discountsvc.AssociationResult, error)) http.HandlerFunc {
	return withDiscountID(svc, logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		ctx := r.Context()
		var payload cartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := op(ctx, middleware.ActorFromContext(ctx), id, payload.CartID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	})
}

func listHandler(logg *logger.Logger, op func(ctx context.Context, actor access.Actor, params discountsvc.ListParams) (*discountsvc.ListResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := op(ctx, middleware.ActorFromContext(ctx), params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseListParams(r *http.Request) (discountsvc.ListParams, error) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		return discountsvc.ListParams{}, err
	}
	isActive, err := validators.ParseQueryBool(r, "is_active")
	if err != nil {
		return discountsvc.ListParams{}, err
	}
	shopID, err := validators.ParseQueryUUID(r, "shop_id")
	if err != nil {
		return discountsvc.ListParams{}, err
	}

	filters := discountsvc.ListFilters{
		IsActive: isActive,
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		ShopID:   shopID,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("discount_type")); raw != "" {
		dt, err := enums.ParseDiscountType(strings.ToUpper(raw))
		if err != nil {
			return discountsvc.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type")
		}
		filters.DiscountType = &dt
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("discount_scope")); raw != "" {
		scope, err := enums.ParseDiscountScope(strings.ToUpper(raw))
		if err != nil {
			return discountsvc.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_scope")
		}
		filters.DiscountScope = &scope
	}
	return discountsvc.ListParams{Page: page, Filters: filters}, nil
}
