package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the slice of the redis client the ledger needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Ledger records which events a single consumer has handled. Entries live
// under tm:idempotency:evt:<consumer>:<event_id> and expire after ttl.
type Ledger struct {
	store Store
	scope string
	ttl   time.Duration
}

func NewLedger(store Store, consumer string, ttl time.Duration) (*Ledger, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Ledger{store: store, scope: "evt:" + consumer, ttl: ttl}, nil
}

// Claim marks eventID as handled. It reports false when another delivery
// already claimed it.
func (l *Ledger) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	return l.store.SetNX(ctx, l.key(eventID), time.Now().UTC().Format(time.RFC3339), l.ttl)
}

// Release drops a claim so a redelivery can be processed again.
func (l *Ledger) Release(ctx context.Context, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return nil
	}
	return l.store.Del(ctx, l.key(eventID))
}

func (l *Ledger) key(eventID uuid.UUID) string {
	return l.store.IdempotencyKey(l.scope, eventID.String())
}
