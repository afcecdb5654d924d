package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

type shopLookup interface {
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error)
}

// Resolver turns verified token claims into an Actor.
type Resolver struct {
	shops shopLookup
}

// NewResolver builds a Resolver backed by the shop repository.
func NewResolver(shops shopLookup) (*Resolver, error) {
	if shops == nil {
		return nil, fmt.Errorf("shop lookup required")
	}
	return &Resolver{shops: shops}, nil
}

// Resolve attaches the owned shop for sellers. Shoppers and admins never carry a shop.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, role enums.UserRole) (Actor, error) {
	actor := Actor{UserID: userID, Role: role}
	if role != enums.UserRoleSeller {
		return actor, nil
	}
	shop, err := r.shops.FindByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return actor, nil
		}
		return Actor{}, fmt.Errorf("lookup owned shop: %w", err)
	}
	shopID := shop.ID
	actor.ShopID = &shopID
	return actor, nil
}
