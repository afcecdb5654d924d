package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/db"
	"github.com/angelmondragon/threadmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/threadmart-backend/pkg/types"
)

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	client *db.Client
	conn   *gorm.DB
	svc    Service
	outbox *recordingOutbox
	buyer  access.Actor
	admin  access.Actor
	order  *models.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	rec := &recordingOutbox{}
	svc, err := NewService(NewRepository(conn), client, rec, logger.New(logger.Options{ServiceName: "payments-test"}))
	require.NoError(t, err)

	buyer := dbtest.MustCreateUser(t, conn, enums.UserRoleShopper)
	admin := dbtest.MustCreateUser(t, conn, enums.UserRoleAdmin)
	order := &models.Order{
		UserID:          buyer.ID,
		Status:          enums.OrderStatusPending,
		SubTotal:        decimal.RequireFromString("40"),
		ShippingCost:    decimal.Zero,
		Tax:             decimal.Zero,
		Total:           decimal.RequireFromString("40"),
		ShippingAddress: types.Address{FullName: "B", Line1: "1 St", City: "X", PostalCode: "1"},
		PaymentMethod:   enums.PaymentMethodCard,
	}
	require.NoError(t, conn.Omit("Items", "Payment").Create(order).Error)

	return &fixture{
		client: client,
		conn:   conn,
		svc:    svc,
		outbox: rec,
		buyer:  access.Actor{UserID: buyer.ID, Role: enums.UserRoleShopper},
		admin:  access.Actor{UserID: admin.ID, Role: enums.UserRoleAdmin},
		order:  order,
	}
}

func (f *fixture) createPayment(t *testing.T) *models.Payment {
	t.Helper()
	var payment *models.Payment
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		payment, err = f.svc.CreateForOrder(context.Background(), tx, f.order.ID, f.order.Total, enums.PaymentMethodCard)
		return err
	})
	require.NoError(t, err)
	return payment
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, pkgerrors.CodeOf(err), "unexpected error: %v", err)
}

func TestCreateForOrderRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	payment := f.createPayment(t)
	require.Equal(t, enums.PaymentStatusPending, payment.Status)

	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := f.svc.CreateForOrder(context.Background(), tx, f.order.ID, f.order.Total, enums.PaymentMethodCard)
		return err
	})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateForOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateForOrder(ctx, nil, f.order.ID, f.order.Total, enums.PaymentMethodCard)
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.CreateForOrder(ctx, tx, f.order.ID, decimal.NewFromInt(-1), enums.PaymentMethodCard)
		return err
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestGetForOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createPayment(t)

	got, err := f.svc.GetForOrder(ctx, f.buyer, f.order.ID)
	require.NoError(t, err)
	require.Equal(t, f.order.ID, got.OrderID)

	_, err = f.svc.GetForOrder(ctx, f.admin, f.order.ID)
	require.NoError(t, err)

	stranger := dbtest.MustCreateUser(t, f.conn, enums.UserRoleShopper)
	_, err = f.svc.GetForOrder(ctx, access.Actor{UserID: stranger.ID, Role: enums.UserRoleShopper}, f.order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.GetForOrder(ctx, f.buyer, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.createPayment(t)
	ref := "  ch_123 "

	_, err := f.svc.UpdateStatus(ctx, f.buyer, payment.ID, UpdateStatusInput{Status: enums.PaymentStatusCompleted})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.admin, payment.ID, UpdateStatusInput{Status: enums.PaymentStatusRefunded})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	got, err := f.svc.UpdateStatus(ctx, f.admin, payment.ID, UpdateStatusInput{Status: enums.PaymentStatusCompleted, TransactionRef: &ref})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, got.Status)
	require.NotNil(t, got.TransactionRef)
	require.Equal(t, "ch_123", *got.TransactionRef)

	require.Len(t, f.outbox.events, 1)
	change := f.outbox.events[0].Data.(payloads.PaymentStatusChangedEvent)
	require.Equal(t, enums.PaymentStatusPending, change.From)
	require.Equal(t, enums.PaymentStatusCompleted, change.To)

	_, err = f.svc.UpdateStatus(ctx, f.admin, uuid.New(), UpdateStatusInput{Status: enums.PaymentStatusFailed})
	requireCode(t, err, pkgerrors.CodeNotFound)
}
