package pricing

import (
	"context"
	"errors"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
	"github.com/angelmondragon/threadmart-backend/pkg/outbox"
)

type processor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker pulls pricing events from Pub/Sub and hands them to a processor.
type Worker struct {
	subscription *gcppubsub.Subscriber
	processor    processor
	logg         *logger.Logger
}

// NewWorker wires a subscription to a processor.
func NewWorker(subscription *gcppubsub.Subscriber, proc processor, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("pricing subscription is required")
	}
	if proc == nil {
		return nil, errors.New("pricing processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{subscription: subscription, processor: proc, logg: logg}, nil
}

// Run receives messages until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if handleMessage(innerCtx, w.processor, w.logg, msg.ID, msg.Data, msg.Attributes) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// handleMessage reports whether the message should be redelivered.
func handleMessage(ctx context.Context, proc processor, logg *logger.Logger, messageID string, data []byte, attrs map[string]string) bool {
	logCtx := logg.WithFields(ctx, map[string]any{"message_id": messageID})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		logg.Warn(logg.WithField(logCtx, "error", err.Error()), "invalid pricing envelope")
		return false
	}
	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = strings.TrimSpace(attrs["event_id"])
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(attrs["event_type"]))
	if err != nil {
		logg.Warn(logg.WithField(logCtx, "error", err.Error()), "unknown event type")
		return false
	}

	if err := proc.Process(logCtx, eventType, envelope); err != nil {
		if errors.Is(err, ErrMalformedEvent) {
			logg.Warn(logg.WithField(logCtx, "error", err.Error()), "dropping malformed pricing event")
			return false
		}
		return true
	}
	return false
}
