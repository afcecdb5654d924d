package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/metrics"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
)

// Trigger labels what caused a recalculation.
type Trigger string

const (
	TriggerAssociation    Trigger = "association"
	TriggerDiscountWrite  Trigger = "discount_write"
	TriggerDiscountDelete Trigger = "discount_delete"
	TriggerManual         Trigger = "manual"
	TriggerVariation      Trigger = "variation_update"
	TriggerSweep          Trigger = "window_sweep"
	TriggerEvent          Trigger = "event"
)

type repository interface {
	LoadVariations(tx *gorm.DB, ids []uuid.UUID) ([]models.ProductVariation, map[uuid.UUID]uuid.UUID, error)
	DiscountsCovering(tx *gorm.DB, variations []models.ProductVariation, categoryByProduct map[uuid.UUID]uuid.UUID) (map[uuid.UUID][]models.Discount, error)
	VariationIDsForDiscount(tx *gorm.DB, discountID uuid.UUID) ([]uuid.UUID, error)
	SetDiscountPrice(tx *gorm.DB, variationID uuid.UUID, price *decimal.Decimal) error
	CartItemsForVariations(tx *gorm.DB, variationIDs []uuid.UUID) ([]models.CartItem, error)
	UpdateCartItemPricing(tx *gorm.DB, itemID uuid.UUID, price, total decimal.Decimal, totalDiscount *decimal.Decimal) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Summary reports what one recalculation touched.
type Summary struct {
	Variations int
	Changed    int
	CartItems  int
}

// EngineParams configure the engine.
type EngineParams struct {
	Repo    repository
	Outbox  outboxEmitter
	Metrics *metrics.PricingMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// Engine recomputes variation discount prices and keeps cart lines in step with them.
type Engine struct {
	repo    repository
	outbox  outboxEmitter
	metrics *metrics.PricingMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewEngine builds the price recalculation engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		repo:    params.Repo,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// RepriceDiscount reprices every variation the discount reaches, directly or by category.
func (e *Engine) RepriceDiscount(ctx context.Context, tx *gorm.DB, trigger Trigger, discountID uuid.UUID) (Summary, error) {
	ids, err := e.repo.VariationIDsForDiscount(tx, discountID)
	if err != nil {
		return Summary{}, fmt.Errorf("load variations for discount: %w", err)
	}
	return e.RepriceVariations(ctx, tx, trigger, ids)
}

// RepriceVariations recomputes discountPrice for each variation and rewrites its cart
// lines, all on tx. The base price is never modified.
func (e *Engine) RepriceVariations(ctx context.Context, tx *gorm.DB, trigger Trigger, variationIDs []uuid.UUID) (Summary, error) {
	if tx == nil {
		return Summary{}, gorm.ErrInvalidTransaction
	}
	start := time.Now()
	var summary Summary
	if len(variationIDs) == 0 {
		return summary, nil
	}

	variations, categoryByProduct, err := e.repo.LoadVariations(tx, variationIDs)
	if err != nil {
		return summary, fmt.Errorf("load variations: %w", err)
	}
	covering, err := e.repo.DiscountsCovering(tx, variations, categoryByProduct)
	if err != nil {
		return summary, fmt.Errorf("load covering discounts: %w", err)
	}
	items, err := e.repo.CartItemsForVariations(tx, variationIDs)
	if err != nil {
		return summary, fmt.Errorf("load cart items: %w", err)
	}
	itemsByVariation := make(map[uuid.UUID][]models.CartItem, len(variations))
	for _, item := range items {
		itemsByVariation[item.ProductVariationID] = append(itemsByVariation[item.ProductVariationID], item)
	}

	now := e.now().UTC()
	for _, variation := range variations {
		result := Compute(variation.Price, covering[variation.ID], now)
		if err := e.repo.SetDiscountPrice(tx, variation.ID, result.DiscountPrice); err != nil {
			return summary, fmt.Errorf("update variation %s: %w", variation.ID, err)
		}
		summary.Variations++

		lines := itemsByVariation[variation.ID]
		for _, item := range lines {
			total, totalDiscount := LineTotals(variation.Price, result.DiscountPrice, item.Quantity)
			if err := e.repo.UpdateCartItemPricing(tx, item.ID, variation.Price, total, totalDiscount); err != nil {
				return summary, fmt.Errorf("update cart item %s: %w", item.ID, err)
			}
			summary.CartItems++
		}

		if samePrice(variation.DiscountPrice, result.DiscountPrice) {
			continue
		}
		summary.Changed++
		if err := e.emitRepriced(ctx, tx, variation, result.DiscountPrice, len(lines)); err != nil {
			return summary, err
		}
	}

	e.metrics.ObserveRecalculation(string(trigger), summary.Variations, summary.CartItems, time.Since(start))
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"trigger":    string(trigger),
		"variations": summary.Variations,
		"changed":    summary.Changed,
		"cart_items": summary.CartItems,
	})
	e.logg.Debug(logCtx, "variations repriced")
	return summary, nil
}

func (e *Engine) emitRepriced(ctx context.Context, tx *gorm.DB, variation models.ProductVariation, price *decimal.Decimal, cartItems int) error {
	if e.outbox == nil {
		return nil
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventVariationRepriced,
		AggregateType: enums.AggregateVariation,
		AggregateID:   variation.ID,
		Data: payloads.VariationRepricedEvent{
			VariationID:       variation.ID,
			Price:             variation.Price,
			DiscountPrice:     price,
			CartItemsAffected: cartItems,
		},
		OccurredAt: e.now().UTC(),
	}
	if err := e.outbox.Emit(ctx, tx, event); err != nil {
		return fmt.Errorf("emit variation repriced: %w", err)
	}
	return nil
}

func samePrice(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
