package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	product "github.com/angelmondragon/threadmart-backend/internal/products"
	"github.com/angelmondragon/threadmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

func TestWishlistLifecycle(t *testing.T) {
	_, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		WishlistRepo: NewRepository(conn),
		ProductRepo:  product.NewRepository(conn),
	})
	require.NoError(t, err)
	ctx := context.Background()

	seller := dbtest.MustCreateUser(t, conn, enums.UserRoleSeller)
	user := dbtest.MustCreateUser(t, conn, enums.UserRoleShopper)
	shop := dbtest.MustCreateShop(t, conn, seller.ID)
	category := dbtest.MustCreateCategory(t, conn, nil)
	first := dbtest.MustCreateProduct(t, conn, shop.ID, category.ID)
	second := dbtest.MustCreateProduct(t, conn, shop.ID, category.ID)
	actor := access.Actor{UserID: user.ID, Role: enums.UserRoleShopper}

	require.NoError(t, svc.AddItem(ctx, actor, first.ID))
	require.NoError(t, svc.AddItem(ctx, actor, first.ID), "adding twice is a no-op")
	require.NoError(t, svc.AddItem(ctx, actor, second.ID))

	page, err := svc.GetWishlist(ctx, actor, pagination.Params{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(2), page.Pagination.Total)

	ids, err := svc.GetWishlistIDs(ctx, actor)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, ids.ProductIDs)

	require.NoError(t, svc.RemoveItem(ctx, actor, first.ID))
	require.NoError(t, svc.RemoveItem(ctx, actor, first.ID))
	ids, err = svc.GetWishlistIDs(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{second.ID}, ids.ProductIDs)
}

func TestAddItemErrors(t *testing.T) {
	_, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		WishlistRepo: NewRepository(conn),
		ProductRepo:  product.NewRepository(conn),
	})
	require.NoError(t, err)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, conn, enums.UserRoleShopper)
	actor := access.Actor{UserID: user.ID, Role: enums.UserRoleShopper}

	err = svc.AddItem(ctx, access.Actor{}, uuid.New())
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	err = svc.AddItem(ctx, actor, uuid.Nil)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	err = svc.AddItem(ctx, actor, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestNewServiceRequiresRepos(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
