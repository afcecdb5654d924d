// Package access carries the authenticated caller through a request and answers
// the ownership questions every seller-facing operation asks.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
)

// Actor is resolved once per request. ShopID is set only for sellers that own a shop.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
	ShopID *uuid.UUID
}

func (a Actor) IsAdmin() bool { return a.Role == enums.UserRoleAdmin }

func (a Actor) IsSeller() bool { return a.Role == enums.UserRoleSeller }

// OwnsShop reports whether the actor is the owner of shopID.
func (a Actor) OwnsShop(shopID uuid.UUID) bool {
	return a.ShopID != nil && *a.ShopID == shopID
}

// CanManageShop is true for admins and for the owner of shopID.
func (a Actor) CanManageShop(shopID uuid.UUID) bool {
	return a.IsAdmin() || a.OwnsShop(shopID)
}

// RequireShop returns FORBIDDEN unless the actor may manage shopID.
func (a Actor) RequireShop(shopID uuid.UUID) error {
	if a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !a.CanManageShop(shopID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to manage this shop")
	}
	return nil
}

// RequireAdmin returns FORBIDDEN for every role but admin.
func (a Actor) RequireAdmin() error {
	if a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !a.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

// OwnedShop returns the actor's shop id or NOT_FOUND when the caller owns no shop.
func (a Actor) OwnedShop() (uuid.UUID, error) {
	if a.ShopID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "no shop found for user")
	}
	return *a.ShopID, nil
}

// OutboxRef identifies the actor on emitted domain events; nil for system work.
func (a Actor) OutboxRef() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, ShopID: a.ShopID, Role: string(a.Role)}
}

type actorKey struct{}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
