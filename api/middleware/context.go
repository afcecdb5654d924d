package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/internal/access"
)

// ActorFromContext returns the resolved actor, or the zero Actor for anonymous requests.
func ActorFromContext(ctx context.Context) access.Actor {
	if ctx == nil {
		return access.Actor{}
	}
	actor, _ := access.FromContext(ctx)
	return actor
}

// UserIDFromContext is empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id := ActorFromContext(ctx).UserID; id != uuid.Nil {
		return id.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	return string(ActorFromContext(ctx).Role)
}
