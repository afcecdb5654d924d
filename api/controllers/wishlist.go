package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/threadmart-backend/api/middleware"
	"github.com/angelmondragon/threadmart-backend/api/responses"
	"github.com/angelmondragon/threadmart-backend/api/validators"
	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/wishlist"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

type wishlistAction func(ctx context.Context, actor access.Actor, r *http.Request) (any, error)

// wishlistRoute resolves the caller and writes whatever the action returns.
func wishlistRoute(svc wishlist.Service, logg *logger.Logger, action wishlistAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		out, err := action(ctx, middleware.ActorFromContext(ctx), r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// WishlistList returns the caller's liked products, newest first.
func WishlistList(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistRoute(svc, logg, func(ctx context.Context, actor access.Actor, r *http.Request) (any, error) {
		page, err := validators.ParsePagination(r)
		if err != nil {
			return nil, err
		}
		return svc.GetWishlist(ctx, actor, page)
	})
}

func WishlistIDs(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistRoute(svc, logg, func(ctx context.Context, actor access.Actor, _ *http.Request) (any, error) {
		return svc.GetWishlistIDs(ctx, actor)
	})
}

// WishlistAddItem likes a product. Liking twice is a no-op.
func WishlistAddItem(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistRoute(svc, logg, func(ctx context.Context, actor access.Actor, r *http.Request) (any, error) {
		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			return nil, err
		}
		if err := svc.AddItem(ctx, actor, productID); err != nil {
			return nil, err
		}
		return map[string]bool{"added": true}, nil
	})
}

func WishlistRemoveItem(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return wishlistRoute(svc, logg, func(ctx context.Context, actor access.Actor, r *http.Request) (any, error) {
		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			return nil, err
		}
		if err := svc.RemoveItem(ctx, actor, productID); err != nil {
			return nil, err
		}
		return map[string]bool{"removed": true}, nil
	})
}
