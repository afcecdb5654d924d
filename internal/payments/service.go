package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/db"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
)

const orderUniqueConstraint = "payments_order_id_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentDTO exposes an order payment.
type PaymentDTO struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"order_id"`
	Amount         decimal.Decimal     `json:"amount"`
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	TransactionRef *string             `json:"transaction_ref,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// UpdateStatusInput moves a payment to Status, optionally recording the gateway reference.
type UpdateStatusInput struct {
	Status         enums.PaymentStatus
	TransactionRef *string
}

// Service manages the payment attached to each order. The gateway is external;
// status changes are recorded by admins or gateway callbacks.
type Service interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod) (*models.Payment, error)
	GetForOrder(ctx context.Context, actor access.Actor, orderID uuid.UUID) (*PaymentDTO, error)
	UpdateStatus(ctx context.Context, actor access.Actor, paymentID uuid.UUID, input UpdateStatusInput) (*PaymentDTO, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
}

func NewService(repo *Repository, tx txRunner, outbox outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, logg: logg}, nil
}

// CreateForOrder records a PENDING payment inside the caller's transaction.
func (s *service) CreateForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod) (*models.Payment, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount cannot be negative")
	}
	payment := &models.Payment{
		OrderID: orderID,
		Amount:  amount,
		Method:  method,
		Status:  enums.PaymentStatusPending,
	}
	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, orderUniqueConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment already exists for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

func (s *service) GetForOrder(ctx context.Context, actor access.Actor, orderID uuid.UUID) (*PaymentDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	owner, err := s.repo.OrderOwner(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if owner != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	payment, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "payment not found", "load payment")
	}
	return fromModel(payment), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor access.Actor, paymentID uuid.UUID, input UpdateStatusInput) (*PaymentDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if input.TransactionRef != nil {
		ref := strings.TrimSpace(*input.TransactionRef)
		if ref == "" {
			input.TransactionRef = nil
		} else {
			input.TransactionRef = &ref
		}
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "payment not found", "load payment")
		}
		from := payment.Status
		if !from.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment cannot move from %s to %s", from, input.Status)).
				WithDetails(map[string]any{"from": from, "to": input.Status})
		}
		ok, err := repo.UpdateStatus(ctx, payment.ID, from, input.Status, input.TransactionRef)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment was modified concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentStatusChanged,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.PaymentStatusChangedEvent{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				From:      from,
				To:        input.Status,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment status changed")
		}
		updated, err = repo.FindByID(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"payment_id": paymentID.String(), "status": string(input.Status)})
	s.logg.Info(ctx, "payment status updated")
	return fromModel(updated), nil
}

func fromModel(p *models.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		Method:         p.Method,
		Status:         p.Status,
		TransactionRef: p.TransactionRef,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func notFoundOr(err error, notFound, dependency string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, dependency)
}
