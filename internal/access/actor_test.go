package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
)

func TestActorRequireShop(t *testing.T) {
	shopID := uuid.New()
	owner := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller, ShopID: &shopID}
	stranger := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	if err := owner.RequireShop(shopID); err != nil {
		t.Fatalf("owner should manage shop: %v", err)
	}
	if err := admin.RequireShop(shopID); err != nil {
		t.Fatalf("admin should manage any shop: %v", err)
	}
	if err := stranger.RequireShop(shopID); pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := (Actor{}).RequireShop(shopID); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for anonymous actor, got %v", err)
	}
}

func TestActorRequireAdmin(t *testing.T) {
	if err := (Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}).RequireAdmin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := (Actor{UserID: uuid.New(), Role: enums.UserRoleShopper}).RequireAdmin()
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestActorOwnedShop(t *testing.T) {
	if _, err := (Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}).OwnedShop(); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	shopID := uuid.New()
	got, err := (Actor{ShopID: &shopID}).OwnedShop()
	if err != nil || got != shopID {
		t.Fatalf("expected %s, got %s err=%v", shopID, got, err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: enums.UserRoleShopper}
	ctx := WithActor(context.Background(), actor)
	got, ok := FromContext(ctx)
	if !ok || got.UserID != actor.UserID {
		t.Fatalf("actor not restored from context")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context should not carry an actor")
	}
}

type stubShopLookup struct {
	shop *models.Shop
	err  error
}

func (s stubShopLookup) FindByOwner(context.Context, uuid.UUID) (*models.Shop, error) {
	return s.shop, s.err
}

func TestResolverResolve(t *testing.T) {
	shop := &models.Shop{ID: uuid.New()}
	resolver, err := NewResolver(stubShopLookup{shop: shop})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	seller, err := resolver.Resolve(context.Background(), uuid.New(), enums.UserRoleSeller)
	if err != nil {
		t.Fatalf("resolve seller: %v", err)
	}
	if seller.ShopID == nil || *seller.ShopID != shop.ID {
		t.Fatalf("expected seller shop %s", shop.ID)
	}

	shopper, err := resolver.Resolve(context.Background(), uuid.New(), enums.UserRoleShopper)
	if err != nil || shopper.ShopID != nil {
		t.Fatalf("shoppers never carry a shop, got %+v err=%v", shopper, err)
	}
}

func TestResolverSellerWithoutShop(t *testing.T) {
	resolver, _ := NewResolver(stubShopLookup{err: gorm.ErrRecordNotFound})
	actor, err := resolver.Resolve(context.Background(), uuid.New(), enums.UserRoleSeller)
	if err != nil {
		t.Fatalf("missing shop is not an error: %v", err)
	}
	if actor.ShopID != nil {
		t.Fatal("expected no shop")
	}

	resolver, _ = NewResolver(stubShopLookup{err: errors.New("db down")})
	if _, err := resolver.Resolve(context.Background(), uuid.New(), enums.UserRoleSeller); err == nil {
		t.Fatal("expected lookup failure to surface")
	}
}

func TestActorOutboxRef(t *testing.T) {
	if ref := (Actor{}).OutboxRef(); ref != nil {
		t.Fatalf("system actor should not produce a ref, got %+v", ref)
	}
	shopID := uuid.New()
	actor := Actor{UserID: uuid.New(), Role: enums.UserRoleSeller, ShopID: &shopID}
	ref := actor.OutboxRef()
	if ref == nil || ref.UserID != actor.UserID || ref.Role != "seller" || *ref.ShopID != shopID {
		t.Fatalf("unexpected ref %+v", ref)
	}
}
