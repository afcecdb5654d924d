package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	enginepkg "github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
)

// ConsumerName scopes this consumer's idempotency entries.
const ConsumerName = "pricing"

// ErrMalformedEvent marks envelopes that can never be processed and must not be redelivered.
var ErrMalformedEvent = errors.New("malformed pricing event")

type repricer interface {
	RepriceDiscount(ctx context.Context, tx *gorm.DB, trigger enginepkg.Trigger, discountID uuid.UUID) (enginepkg.Summary, error)
	RepriceVariations(ctx context.Context, tx *gorm.DB, trigger enginepkg.Trigger, variationIDs []uuid.UUID) (enginepkg.Summary, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventClaimer interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

// Consumer applies discount lifecycle events to variation and cart prices.
type Consumer struct {
	engine repricer
	tx     txRunner
	claims eventClaimer
	logg   *logger.Logger
}

// NewConsumer builds a pricing consumer.
func NewConsumer(engine repricer, tx txRunner, claims eventClaimer, logg *logger.Logger) (*Consumer, error) {
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if claims == nil {
		return nil, fmt.Errorf("idempotency ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{engine: engine, tx: tx, claims: claims, logg: logg}, nil
}

// Process reprices whatever the event touched. Unknown event types are skipped.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventDiscountRepriceRequested && eventType != enums.EventDiscountDeleted {
		c.logg.Debug(logCtx, "event not handled by pricing consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("%w: event id missing", ErrMalformedEvent)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("%w: parse event id: %v", ErrMalformedEvent, err)
	}

	first, err := c.claims.Claim(ctx, eventID)
	if err != nil {
		return fmt.Errorf("idempotency claim: %w", err)
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	summary, err := c.apply(ctx, eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to reprice from event", err)
		_ = c.claims.Release(ctx, eventID)
		return err
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"variations": summary.Variations,
		"changed":    summary.Changed,
		"cart_items": summary.CartItems,
	}), "pricing event applied")
	return nil
}

func (c *Consumer) apply(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) (enginepkg.Summary, error) {
	var summary enginepkg.Summary
	switch eventType {
	case enums.EventDiscountRepriceRequested:
		var event payloads.DiscountRepriceRequestedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return summary, fmt.Errorf("%w: decode payload: %v", ErrMalformedEvent, err)
		}
		if event.DiscountID == uuid.Nil {
			return summary, fmt.Errorf("%w: discount_id missing", ErrMalformedEvent)
		}
		err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			summary, err = c.engine.RepriceDiscount(ctx, tx, enginepkg.TriggerEvent, event.DiscountID)
			return err
		})
		return summary, err
	case enums.EventDiscountDeleted:
		var event payloads.DiscountDeletedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return summary, fmt.Errorf("%w: decode payload: %v", ErrMalformedEvent, err)
		}
		if len(event.VariationIDs) == 0 {
			return summary, nil
		}
		err := c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			summary, err = c.engine.RepriceVariations(ctx, tx, enginepkg.TriggerEvent, event.VariationIDs)
			return err
		})
		return summary, err
	}
	return summary, nil
}
