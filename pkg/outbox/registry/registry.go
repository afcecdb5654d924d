// Package registry maps outbox event types to their Pub/Sub topic and payload schema.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox/payloads"
)

type stream int

const (
	pricingStream stream = iota
	ordersStream
)

// catalog lists every event the publisher knows how to route.
var catalog = []struct {
	eventType enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	stream    stream
	payload   func() any
}{
	{enums.EventDiscountRepriceRequested, enums.AggregateDiscount, pricingStream, func() any { return &payloads.DiscountRepriceRequestedEvent{} }},
	{enums.EventDiscountDeleted, enums.AggregateDiscount, pricingStream, func() any { return &payloads.DiscountDeletedEvent{} }},
	{enums.EventVariationRepriced, enums.AggregateVariation, pricingStream, func() any { return &payloads.VariationRepricedEvent{} }},
	{enums.EventOrderCreated, enums.AggregateOrder, ordersStream, func() any { return &payloads.OrderCreatedEvent{} }},
	{enums.EventOrderStatusChanged, enums.AggregateOrder, ordersStream, func() any { return &payloads.OrderStatusChangedEvent{} }},
	{enums.EventPaymentStatusChanged, enums.AggregatePayment, ordersStream, func() any { return &payloads.PaymentStatusChangedEvent{} }},
}

// EventDescriptor is the routing entry for one event type.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will never publish no matter how often it is retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable outbox event"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err, or anything it wraps, is a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry binds the catalog to the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[stream]string{
		pricingStream: cfg.PricingTopic,
		ordersStream:  cfg.OrdersTopic,
	}
	if topics[pricingStream] == "" {
		return nil, fmt.Errorf("pricing topic is required")
	}
	if topics[ordersStream] == "" {
		return nil, fmt.Errorf("orders topic is required")
	}

	entries := make(map[enums.OutboxEventType]EventDescriptor, len(catalog))
	for _, c := range catalog {
		entries[c.eventType] = EventDescriptor{
			EventType:      c.eventType,
			AggregateType:  c.aggregate,
			Topic:          topics[c.stream],
			PayloadFactory: c.payload,
		}
	}
	return &EventRegistry{entries: entries}, nil
}

// Topics returns the distinct topics events are routed to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, c := range catalog {
		topic := r.entries[c.eventType].Topic
		if !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}
	return topics
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("%s: aggregate %s, want %s", event.EventType, event.AggregateType, desc.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(fmt.Errorf("%s: missing aggregate_id", event.EventType))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
