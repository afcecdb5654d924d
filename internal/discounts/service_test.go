package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) ofType(kind enums.OutboxEventType) []outbox.DomainEvent {
	var out []outbox.DomainEvent
	for _, e := range r.events {
		if e.EventType == kind {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	conn      *gorm.DB
	svc       Service
	outbox    *recordingOutbox
	seller    access.Actor
	admin     access.Actor
	shop      *models.Shop
	category  *models.ProductCategory
	product   *models.Product
	variation *models.ProductVariation
	cart      *models.Cart
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	logg := logger.New(logger.Options{ServiceName: "discounts-test"})

	sellerUser := dbtest.MustCreateUser(t, conn, enums.UserRoleSeller)
	adminUser := dbtest.MustCreateUser(t, conn, enums.UserRoleAdmin)
	shopper := dbtest.MustCreateUser(t, conn, enums.UserRoleShopper)
	shop := dbtest.MustCreateShop(t, conn, sellerUser.ID)
	category := dbtest.MustCreateCategory(t, conn, nil)
	product := dbtest.MustCreateProduct(t, conn, shop.ID, category.ID)
	variation := dbtest.MustCreateVariation(t, conn, product.ID, "1000", 10)
	cart := dbtest.MustCreateCart(t, conn, shopper.ID, map[*models.ProductVariation]int{variation: 3})

	rec := &recordingOutbox{}
	engine, err := pricing.NewEngine(pricing.EngineParams{
		Repo:   pricing.NewRepository(conn),
		Outbox: rec,
		Logger: logg,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       client,
		Repricer: engine,
		Outbox:   rec,
		Logger:   logg,
	})
	require.NoError(t, err)

	shopID := shop.ID
	return &fixture{
		conn:      conn,
		svc:       svc,
		outbox:    rec,
		seller:    access.Actor{UserID: sellerUser.ID, Role: enums.UserRoleSeller, ShopID: &shopID},
		admin:     access.Actor{UserID: adminUser.ID, Role: enums.UserRoleAdmin},
		shop:      shop,
		category:  category,
		product:   product,
		variation: variation,
		cart:      cart,
	}
}

func (f *fixture) reloadVariation(t *testing.T) models.ProductVariation {
	t.Helper()
	var v models.ProductVariation
	require.NoError(t, f.conn.First(&v, "id = ?", f.variation.ID).Error)
	return v
}

func (f *fixture) cartItem(t *testing.T) models.CartItem {
	t.Helper()
	var item models.CartItem
	require.NoError(t, f.conn.Where("cart_id = ?", f.cart.ID).First(&item).Error)
	return item
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

func percentageInput(value string) CreateInput {
	return CreateInput{
		Name:          "Summer sale",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountScope: enums.DiscountScopeProduct,
		Value:         decimal.RequireFromString(value),
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	before := time.Now().UTC().Add(-time.Second)

	dto, err := f.svc.Create(context.Background(), f.seller, percentageInput("10"))
	require.NoError(t, err)
	require.Equal(t, f.shop.ID, dto.ShopID)
	require.True(t, dto.IsActive)
	require.True(t, dto.CurrentlyActive)
	require.False(t, dto.AllowStacking)
	require.False(t, dto.AutoApply)
	require.Equal(t, 1, dto.Priority)
	require.False(t, dto.StartDate.Before(before))
}

func TestCreateRejectsOtherShop(t *testing.T) {
	f := newFixture(t)
	otherSeller := dbtest.MustCreateUser(t, f.conn, enums.UserRoleSeller)
	otherShop := dbtest.MustCreateShop(t, f.conn, otherSeller.ID)

	input := percentageInput("10")
	input.ShopID = &otherShop.ID
	_, err := f.svc.Create(context.Background(), f.seller, input)
	requireCode(t, err, pkgerrors.CodeForbidden)

	dto, err := f.svc.Create(context.Background(), f.admin, input)
	require.NoError(t, err)
	require.Equal(t, otherShop.ID, dto.ShopID)
}

func TestCreateValidatesBuyXGetY(t *testing.T) {
	f := newFixture(t)
	two, one := 2, 1
	productID := f.product.ID

	cases := map[string]CreateInput{
		"missing quantities": {
			Name: "bogo", DiscountType: enums.DiscountTypeBuyXGetY, DiscountScope: enums.DiscountScopeProduct,
			Value: decimal.NewFromInt(1), AppliedToProductID: &productID,
		},
		"missing target": {
			Name: "bogo", DiscountType: enums.DiscountTypeBuyXGetY, DiscountScope: enums.DiscountScopeProduct,
			Value: decimal.NewFromInt(1), BuyQuantity: &two, GetQuantity: &one,
		},
		"wrong scope": {
			Name: "bogo", DiscountType: enums.DiscountTypeBuyXGetY, DiscountScope: enums.DiscountScopeCart,
			Value: decimal.NewFromInt(1), BuyQuantity: &two, GetQuantity: &one, AppliedToProductID: &productID,
		},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.seller, input)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}

	valid := CreateInput{
		Name: "bogo", DiscountType: enums.DiscountTypeBuyXGetY, DiscountScope: enums.DiscountScopeProduct,
		Value: decimal.NewFromInt(1), BuyQuantity: &two, GetQuantity: &one, AppliedToProductID: &productID,
	}
	dto, err := f.svc.Create(context.Background(), f.seller, valid)
	require.NoError(t, err)
	require.Equal(t, enums.DiscountTypeBuyXGetY, dto.DiscountType)
}

func TestCreateRejectsInvalidValues(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.seller, percentageInput("0"))
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(context.Background(), f.seller, percentageInput("100.01"))
	requireCode(t, err, pkgerrors.CodeValidation)

	input := percentageInput("100")
	past := time.Now().UTC().Add(-time.Hour)
	input.EndDate = &past
	_, err = f.svc.Create(context.Background(), f.seller, input)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAddVariationDiscountsRepricesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto, err := f.svc.Create(ctx, f.seller, percentageInput("10"))
	require.NoError(t, err)

	res, err := f.svc.AddVariationDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.variation.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Changed)
	require.Equal(t, 1, res.Repriced)
	require.Equal(t, 1, res.CartItems)

	v := f.reloadVariation(t)
	require.NotNil(t, v.DiscountPrice)
	requireDecimal(t, "900", *v.DiscountPrice)
	requireDecimal(t, "1000", v.Price)

	item := f.cartItem(t)
	requireDecimal(t, "3000", item.TotalPrice)
	require.NotNil(t, item.TotalDiscountPrice)
	requireDecimal(t, "2700", *item.TotalDiscountPrice)

	res, err = f.svc.AddVariationDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.variation.ID, f.variation.ID})
	require.NoError(t, err)
	require.EqualValues(t, 0, res.Changed)

	var links int64
	require.NoError(t, f.conn.Model(&models.ProductVariationDiscount{}).Where("discount_id = ?", dto.ID).Count(&links).Error)
	require.EqualValues(t, 1, links)
	requireDecimal(t, "900", *f.reloadVariation(t).DiscountPrice)
}

func TestAddVariationDiscountsInactiveDoesNotReprice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := percentageInput("10")
	inactive := false
	input.IsActive = &inactive
	dto, err := f.svc.Create(ctx, f.seller, input)
	require.NoError(t, err)

	res, err := f.svc.AddVariationDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.variation.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Changed)
	require.Zero(t, res.Repriced)
	require.Nil(t, f.reloadVariation(t).DiscountPrice)
}

func TestAddVariationDiscountsChecksScopeAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	category := dbtest.MustCreateDiscount(t, f.conn, f.shop.ID, dbtest.WithScope(enums.DiscountScopeCategory))
	_, err := f.svc.AddVariationDiscounts(ctx, f.seller, category.ID, []uuid.UUID{f.variation.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	product := dbtest.MustCreateDiscount(t, f.conn, f.shop.ID)
	_, err = f.svc.AddVariationDiscounts(ctx, f.seller, product.ID, []uuid.UUID{uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)

	otherSeller := dbtest.MustCreateUser(t, f.conn, enums.UserRoleSeller)
	otherShop := dbtest.MustCreateShop(t, f.conn, otherSeller.ID)
	otherProduct := dbtest.MustCreateProduct(t, f.conn, otherShop.ID, f.category.ID)
	foreign := dbtest.MustCreateVariation(t, f.conn, otherProduct.ID, "50", 1)
	_, err = f.svc.AddVariationDiscounts(ctx, f.seller, product.ID, []uuid.UUID{foreign.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	otherShopID := otherShop.ID
	intruder := access.Actor{UserID: otherSeller.ID, Role: enums.UserRoleSeller, ShopID: &otherShopID}
	_, err = f.svc.AddVariationDiscounts(ctx, intruder, product.ID, []uuid.UUID{f.variation.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.AddVariationDiscounts(ctx, f.seller, product.ID, nil)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDeleteVariationDiscountsClearsPricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto, err := f.svc.Create(ctx, f.seller, percentageInput("10"))
	require.NoError(t, err)
	_, err = f.svc.AddVariationDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.variation.ID})
	require.NoError(t, err)

	res, err := f.svc.DeleteVariationDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.variation.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Changed)

	require.Nil(t, f.reloadVariation(t).DiscountPrice)
	item := f.cartItem(t)
	require.Nil(t, item.TotalDiscountPrice)
	requireDecimal(t, "3000", item.TotalPrice)
}

func TestCategoryDiscountsReachShopVariations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := percentageInput("20")
	input.DiscountScope = enums.DiscountScopeCategory
	dto, err := f.svc.Create(ctx, f.seller, input)
	require.NoError(t, err)

	_, err = f.svc.AddCategoryDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)

	res, err := f.svc.AddCategoryDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.category.ID})
	require.NoError(t, err)
	require.Equal(t, 1, res.Repriced)
	requireDecimal(t, "800", *f.reloadVariation(t).DiscountPrice)

	_, err = f.svc.DeleteCategoryDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.category.ID})
	require.NoError(t, err)
	require.Nil(t, f.reloadVariation(t).DiscountPrice)
}

func TestCartDiscountLinksWithoutRepricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := percentageInput("5")
	input.DiscountScope = enums.DiscountScopeCart
	dto, err := f.svc.Create(ctx, f.seller, input)
	require.NoError(t, err)

	res, err := f.svc.AddCartDiscount(ctx, f.seller, dto.ID, f.cart.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Changed)
	require.Nil(t, f.reloadVariation(t).DiscountPrice)

	_, err = f.svc.AddCartDiscount(ctx, f.seller, dto.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)

	res, err = f.svc.DeleteCartDiscount(ctx, f.seller, dto.ID, f.cart.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Changed)
}

func TestDeleteRemovesJoinsAndReprices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto, err := f.svc.Create(ctx, f.seller, percentageInput("10"))
	require.NoError(t, err)
	_, err = f.svc.AddVariationDiscounts(ctx, f.seller, dto.ID, []uuid.UUID{f.variation.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.seller, dto.ID))

	var links int64
	require.NoError(t, f.conn.Model(&models.ProductVariationDiscount{}).Where("discount_id = ?", dto.ID).Count(&links).Error)
	require.Zero(t, links)
	require.Nil(t, f.reloadVariation(t).DiscountPrice)
	require.Nil(t, f.cartItem(t).TotalDiscountPrice)

	deleted := f.outbox.ofType(enums.EventDiscountDeleted)
	require.Len(t, deleted, 1)
	payload, ok := deleted[0].Data.(payloads.DiscountDeletedEvent)
	require.True(t, ok)
	require.Equal(t, []uuid.UUID{f.variation.ID}, payload.VariationIDs)

	_, err = f.svc.Get(ctx, f.seller, dto.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateAndToggleEmitRepriceRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto, err := f.svc.Create(ctx, f.seller, percentageInput("10"))
	require.NoError(t, err)

	value := decimal.NewFromInt(25)
	name := "  Bigger sale "
	updated, err := f.svc.Update(ctx, f.seller, dto.ID, UpdateInput{Value: &value, Name: &name})
	require.NoError(t, err)
	requireDecimal(t, "25", updated.Value)
	require.Equal(t, "Bigger sale", updated.Name)

	toggled, err := f.svc.ToggleStatus(ctx, f.seller, dto.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	requests := f.outbox.ofType(enums.EventDiscountRepriceRequested)
	require.Len(t, requests, 2)
	first := requests[0].Data.(payloads.DiscountRepriceRequestedEvent)
	second := requests[1].Data.(payloads.DiscountRepriceRequestedEvent)
	require.Equal(t, payloads.RepricingReasonUpdated, first.Reason)
	require.Equal(t, payloads.RepricingReasonToggled, second.Reason)
	require.False(t, second.IsActive)

	tooBig := decimal.NewFromInt(150)
	_, err = f.svc.Update(ctx, f.seller, dto.ID, UpdateInput{Value: &tooBig})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRepriceReportsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := dbtest.MustCreateDiscount(t, f.conn, f.shop.ID, dbtest.WithValue("50"))
	dbtest.MustLinkVariation(t, f.conn, d.ID, f.variation.ID)

	res, err := f.svc.Reprice(ctx, f.seller, d.ID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Variations)
	require.Equal(t, 1, res.Changed)
	require.Equal(t, 1, res.CartItems)
	requireDecimal(t, "500", *f.reloadVariation(t).DiscountPrice)
}

func TestSellerListFiltersAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	desc := "Applies to ALL Denim"
	dbtest.MustCreateDiscount(t, f.conn, f.shop.ID, dbtest.WithPriority(3), dbtest.Named("late", nil))
	dbtest.MustCreateDiscount(t, f.conn, f.shop.ID, dbtest.WithPriority(1), dbtest.Named("early", &desc))
	dbtest.MustCreateDiscount(t, f.conn, f.shop.ID, dbtest.WithPriority(0), dbtest.Inactive(), dbtest.Named("off", nil))

	otherSeller := dbtest.MustCreateUser(t, f.conn, enums.UserRoleSeller)
	otherShop := dbtest.MustCreateShop(t, f.conn, otherSeller.ID)
	dbtest.MustCreateDiscount(t, f.conn, otherShop.ID)

	active := true
	res, err := f.svc.SellerList(ctx, f.seller, ListParams{
		Page:    pagination.Params{Page: 1, PageSize: 10},
		Filters: ListFilters{IsActive: &active},
	})
	require.NoError(t, err)
	require.Len(t, res.Discounts, 2)
	require.Equal(t, "early", res.Discounts[0].Name)
	require.Equal(t, "late", res.Discounts[1].Name)
	require.EqualValues(t, 2, res.Metadata.Total)
	require.EqualValues(t, 2, res.Metadata.ActiveCount)
	require.EqualValues(t, 1, res.Metadata.InactiveCount)
	require.Equal(t, 1, res.Metadata.TotalPages)
	require.False(t, res.Metadata.HasNextPage)

	res, err = f.svc.SellerList(ctx, f.seller, ListParams{Filters: ListFilters{Search: "denim"}})
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Equal(t, "early", res.Discounts[0].Name)

	res, err = f.svc.SellerList(ctx, f.seller, ListParams{Page: pagination.Params{Page: 2, PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.True(t, res.Metadata.HasPreviousPage)
}

func TestListAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shopless := dbtest.MustCreateUser(t, f.conn, enums.UserRoleSeller)
	_, err := f.svc.SellerList(ctx, access.Actor{UserID: shopless.ID, Role: enums.UserRoleSeller}, ListParams{})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AdminList(ctx, f.seller, ListParams{})
	requireCode(t, err, pkgerrors.CodeForbidden)

	dbtest.MustCreateDiscount(t, f.conn, f.shop.ID)
	otherSeller := dbtest.MustCreateUser(t, f.conn, enums.UserRoleSeller)
	otherShop := dbtest.MustCreateShop(t, f.conn, otherSeller.ID)
	dbtest.MustCreateDiscount(t, f.conn, otherShop.ID)

	res, err := f.svc.AdminList(ctx, f.admin, ListParams{})
	require.NoError(t, err)
	require.Len(t, res.Discounts, 2)

	res, err = f.svc.AdminList(ctx, f.admin, ListParams{Filters: ListFilters{ShopID: &otherShop.ID}})
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Equal(t, otherShop.ID, res.Discounts[0].ShopID)
}
