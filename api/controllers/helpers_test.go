package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.RouteContext(req.Context())
	if routeCtx == nil {
		routeCtx = chi.NewRouteContext()
	}
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withActor(req *http.Request, role enums.UserRole) (*http.Request, access.Actor) {
	actor := access.Actor{UserID: uuid.New(), Role: role}
	if role == enums.UserRoleSeller {
		shopID := uuid.New()
		actor.ShopID = &shopID
	}
	return req.WithContext(access.WithActor(req.Context(), actor)), actor
}
