package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

type fixture struct {
	conn      *gorm.DB
	svc       Service
	shopper   access.Actor
	shop      *models.Shop
	product   *models.Product
	variation *models.ProductVariation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), client, logger.New(logger.Options{ServiceName: "cart-test"}))
	require.NoError(t, err)

	seller := dbtest.MustCreateUser(t, conn, enums.UserRoleSeller)
	shopper := dbtest.MustCreateUser(t, conn, enums.UserRoleShopper)
	shop := dbtest.MustCreateShop(t, conn, seller.ID)
	category := dbtest.MustCreateCategory(t, conn, nil)
	product := dbtest.MustCreateProduct(t, conn, shop.ID, category.ID)
	variation := dbtest.MustCreateVariation(t, conn, product.ID, "1000", 5)

	return &fixture{
		conn:      conn,
		svc:       svc,
		shopper:   access.Actor{UserID: shopper.ID, Role: enums.UserRoleShopper},
		shop:      shop,
		product:   product,
		variation: variation,
	}
}

func (f *fixture) setDiscountPrice(t *testing.T, price string) {
	t.Helper()
	value := decimal.RequireFromString(price)
	require.NoError(t, f.conn.Model(&models.ProductVariation{}).
		Where("id = ?", f.variation.ID).Update("discount_price", value).Error)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, pkgerrors.CodeOf(err), "unexpected error: %v", err)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "expected %s, got %s", want, got)
}

func TestAddItemMergesAndSnapshotsTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setDiscountPrice(t, "900")

	_, err := f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 2})
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	line := cart.Items[0]
	require.Equal(t, 3, line.Quantity)
	requireDecimal(t, "1000", line.Price)
	requireDecimal(t, "3000", line.TotalPrice)
	require.NotNil(t, line.TotalDiscountPrice)
	requireDecimal(t, "2700", *line.TotalDiscountPrice)
	requireDecimal(t, "2700", cart.Subtotal)
	requireDecimal(t, "2700", cart.Total)
	require.Equal(t, 3, cart.ItemCount)
}

func TestAddItemInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 6})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	var count int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, access.Actor{}, AddItemInput{VariationID: f.variation.ID, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: uuid.New(), Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, f.conn.Model(f.product).Update("is_active", false).Error)
	_, err = f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart, err := f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = f.svc.UpdateItem(ctx, f.shopper, itemID, 4)
	require.NoError(t, err)
	require.Equal(t, 4, cart.Items[0].Quantity)
	requireDecimal(t, "4000", cart.Items[0].TotalPrice)
	require.Nil(t, cart.Items[0].TotalDiscountPrice)

	_, err = f.svc.UpdateItem(ctx, f.shopper, itemID, 9)
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	_, err = f.svc.RemoveItem(ctx, f.shopper, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	cart, err = f.svc.RemoveItem(ctx, f.shopper, itemID)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
	requireDecimal(t, "0", cart.Total)
}

func TestOtherShopperCannotTouchItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart, err := f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 1})
	require.NoError(t, err)

	other := dbtest.MustCreateUser(t, f.conn, enums.UserRoleShopper)
	intruder := access.Actor{UserID: other.ID, Role: enums.UserRoleShopper}
	_, err = f.svc.Get(ctx, intruder)
	require.NoError(t, err)

	_, err = f.svc.UpdateItem(ctx, intruder, cart.Items[0].ID, 2)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestGetPreviewsCartDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart, err := f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 2})
	require.NoError(t, err)

	linked := dbtest.MustCreateDiscount(t, f.conn, f.shop.ID,
		dbtest.WithScope(enums.DiscountScopeCart), dbtest.WithValue("10"))
	require.NoError(t, f.conn.Create(&models.CartDiscount{DiscountID: linked.ID, CartID: cart.ID}).Error)
	// not linked and not auto-applied
	dbtest.MustCreateDiscount(t, f.conn, f.shop.ID,
		dbtest.WithScope(enums.DiscountScopeCart), dbtest.WithValue("50"), dbtest.WithPriority(0))

	got, err := f.svc.Get(ctx, f.shopper)
	require.NoError(t, err)
	requireDecimal(t, "2000", got.Subtotal)
	requireDecimal(t, "200", got.DiscountTotal)
	requireDecimal(t, "1800", got.Total)
	require.Len(t, got.Adjustments, 1)
	require.Equal(t, linked.ID, got.Adjustments[0].DiscountID)
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Clear(ctx, f.shopper), "clearing a missing cart is a no-op")

	_, err := f.svc.AddItem(ctx, f.shopper, AddItemInput{VariationID: f.variation.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, f.shopper))

	cart, err := f.svc.Get(ctx, f.shopper)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
}
