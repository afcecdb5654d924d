package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/api/responses"
	"github.com/angelmondragon/threadmart-backend/internal/access"
	pkgAuth "github.com/angelmondragon/threadmart-backend/pkg/auth"
	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

// ActorResolver turns verified claims into an access.Actor.
type ActorResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, role enums.UserRole) (access.Actor, error)
}

// Auth validates a bearer token, resolves the actor once and stores it on the request context.
func Auth(cfg config.JWTConfig, resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, resolver, logg, true)
}

// OptionalAuth resolves the actor when a token is present and lets anonymous requests through.
// A present but invalid token is still rejected.
func OptionalAuth(cfg config.JWTConfig, resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, resolver, logg, false)
}

func authenticate(cfg config.JWTConfig, resolver ActorResolver, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor := access.Actor{UserID: claims.UserID, Role: claims.Role}
			if resolver != nil {
				actor, err = resolver.Resolve(r.Context(), claims.UserID, claims.Role)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve actor"))
					return
				}
			}

			ctx := access.WithActor(r.Context(), actor)
			if logg != nil {
				var shopID string
				if actor.ShopID != nil {
					shopID = actor.ShopID.String()
				}
				ctx = logg.WithActor(ctx, actor.UserID.String(), string(actor.Role), shopID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}
