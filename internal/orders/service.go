package orders

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
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/threadmart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentCreator records the PENDING payment of a new order inside its transaction.
type PaymentCreator interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod) (*models.Payment, error)
}

// Service places and manages orders.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input CreateOrderInput) (*OrderDTO, error)
	ListMine(ctx context.Context, actor access.Actor, params ListParams) (*OrderListResult, error)
	Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*OrderDTO, error)
	AdminList(ctx context.Context, actor access.Actor, params ListParams) (*OrderListResult, error)
	UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	payments PaymentCreator
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, tx txRunner, payments PaymentCreator, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment creator required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, payments: payments, outbox: outbox, logg: logg, now: time.Now}, nil
}

// Create places an order for the requested lines, or for the caller's cart when no
// lines are given. Every line is checked before anything is written.
func (s *service) Create(ctx context.Context, actor access.Actor, input CreateOrderInput) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		requested := input.Items
		if len(requested) == 0 {
			cartLines, err := repo.CartLines(ctx, actor.UserID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
			}
			if len(cartLines) == 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			for _, line := range cartLines {
				requested = append(requested, LineInput{VariationID: line.ProductVariationID, Quantity: line.Quantity})
			}
		}
		requested = mergeLines(requested)

		ids := make([]uuid.UUID, 0, len(requested))
		for _, line := range requested {
			ids = append(ids, line.VariationID)
		}
		variations, products, err := repo.LoadVariations(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variations")
		}

		items := make([]models.OrderItem, 0, len(requested))
		priced := make([]Line, 0, len(requested))
		for _, line := range requested {
			variation, ok := variations[line.VariationID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variation not found").
					WithDetails(map[string]any{"variation_id": line.VariationID})
			}
			product, ok := products[variation.ProductID]
			if !ok || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not available").
					WithDetails(map[string]any{"variation_id": line.VariationID})
			}
			if variation.Stock < line.Quantity {
				return insufficientStock(product.Name, variation.ID, line.Quantity, variation.Stock)
			}
			price := variation.EffectivePrice()
			priced = append(priced, Line{Price: price, Quantity: line.Quantity})
			items = append(items, models.OrderItem{
				ProductVariationID: variation.ID,
				ProductID:          product.ID,
				ShopID:             product.ShopID,
				ProductName:        product.Name,
				SKU:                variation.SKU,
				Quantity:           line.Quantity,
				Price:              price,
				TotalPrice:         price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
			})
		}

		totals := ComputeTotals(priced, input.ShippingCost, input.Tax)
		order := &models.Order{
			UserID:          actor.UserID,
			Status:          enums.OrderStatusPending,
			SubTotal:        totals.SubTotal,
			ShippingCost:    totals.ShippingCost,
			Tax:             totals.Tax,
			Total:           totals.Total,
			ShippingAddress: input.ShippingAddress,
			PaymentMethod:   input.PaymentMethod,
			Notes:           trimmedOrNil(input.Notes),
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		for _, item := range items {
			ok, err := repo.DecrementStock(ctx, item.ProductVariationID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				variation := variations[item.ProductVariationID]
				return insufficientStock(item.ProductName, item.ProductVariationID, item.Quantity, variation.Stock)
			}
		}

		if _, err := s.payments.CreateForOrder(ctx, tx, order.ID, order.Total, order.PaymentMethod); err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := repo.ClearCart(ctx, actor.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		itemCount := 0
		for _, item := range items {
			itemCount += item.Quantity
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.OrderCreatedEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				Total:     order.Total,
				ItemCount: itemCount,
				ShopIDs:   shopIDs(items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"total":    order.Total.String(),
		"items":    len(order.Items),
	})
	s.logg.Info(ctx, "order created")
	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, actor access.Actor, params ListParams) (*OrderListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID := actor.UserID
	return s.list(ctx, ListQuery{UserID: &userID, Status: params.Status, Pagination: params.Pagination})
}

// Get returns an order to its buyer, an admin, or a seller with lines in it.
func (s *service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		return nil, mapOrderLookup(err)
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

func (s *service) AdminList(ctx context.Context, actor access.Actor, params ListParams) (*OrderListResult, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.list(ctx, ListQuery{UserID: params.UserID, Status: params.Status, Pagination: params.Pagination})
}

// UpdateStatus moves an order along its lifecycle. Cancelling puts the stock back.
func (s *service) UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, id)
		if err != nil {
			return mapOrderLookup(err)
		}
		from = order.Status
		if !from.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot move from %s to %s", from, status)).
				WithDetails(map[string]any{"from": from, "to": status})
		}
		ok, err := repo.UpdateStatus(ctx, order.ID, from, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		if status == enums.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := repo.RestoreStock(ctx, item.ProductVariationID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
				}
			}
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				From:      from,
				To:        status,
				ChangedAt: s.now().UTC(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": id.String(),
		"from":     string(from),
		"to":       string(status),
	})
	s.logg.Info(ctx, "order status updated")
	return FromModel(order), nil
}

func (s *service) list(ctx context.Context, q ListQuery) (*OrderListResult, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	q.Pagination = q.Pagination.Normalize()
	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &OrderListResult{
		Orders:     make([]OrderDTO, 0, len(rows)),
		Pagination: pagination.NewMeta(q.Pagination, total),
	}
	for i := range rows {
		result.Orders = append(result.Orders, *FromModel(&rows[i]))
	}
	return result, nil
}

func validateCreate(input CreateOrderInput) error {
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.ShippingCost.IsNegative() || input.Tax.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping cost and tax cannot be negative")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	for i, line := range input.Items {
		if line.VariationID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "variation_id is required").
				WithDetails(map[string]any{"line": i})
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
				WithDetails(map[string]any{"line": i})
		}
	}
	return nil
}

// mergeLines folds repeated variations into one line, keeping first-seen order.
func mergeLines(lines []LineInput) []LineInput {
	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.VariationID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.VariationID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

func insufficientStock(product string, variationID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", product)).
		WithDetails(map[string]any{
			"variation_id": variationID,
			"product":      product,
			"requested":    requested,
			"available":    available,
		})
}

func canView(actor access.Actor, order *models.Order) bool {
	if actor.IsAdmin() || order.UserID == actor.UserID {
		return true
	}
	for _, item := range order.Items {
		if actor.OwnsShop(item.ShopID) {
			return true
		}
	}
	return false
}

func shopIDs(items []models.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ShopID]; ok {
			continue
		}
		seen[item.ShopID] = struct{}{}
		ids = append(ids, item.ShopID)
	}
	return ids
}

func mapOrderLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
