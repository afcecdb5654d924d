package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	keys   map[string]time.Duration
	setErr error
}

func newMemStore() *memStore { return &memStore{keys: map[string]time.Duration{}} }

func (m *memStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return "tm:idempotency:" + scope + ":" + id
}

func TestNewLedgerValidation(t *testing.T) {
	_, err := NewLedger(nil, "pricing", time.Hour)
	assert.Error(t, err)
	_, err = NewLedger(newMemStore(), "", time.Hour)
	assert.Error(t, err)
	_, err = NewLedger(newMemStore(), "pricing", -time.Second)
	assert.Error(t, err)
}

func TestLedgerClaimOnce(t *testing.T) {
	store := newMemStore()
	ledger, err := NewLedger(store, "pricing-worker", 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	first, err := ledger.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := ledger.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, again)

	key := "tm:idempotency:evt:pricing-worker:" + eventID.String()
	assert.Equal(t, 24*time.Hour, store.keys[key])
}

func TestLedgerReleaseAllowsReclaim(t *testing.T) {
	ledger, err := NewLedger(newMemStore(), "pricing-worker", time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = ledger.Claim(ctx, eventID)
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, eventID))

	first, err := ledger.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestLedgerScopesByConsumer(t *testing.T) {
	store := newMemStore()
	pricing, _ := NewLedger(store, "pricing-worker", time.Hour)
	audit, _ := NewLedger(store, "audit", time.Hour)
	eventID := uuid.New()

	ok, err := pricing.Claim(context.Background(), eventID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = audit.Claim(context.Background(), eventID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerClaimErrors(t *testing.T) {
	store := newMemStore()
	ledger, _ := NewLedger(store, "pricing-worker", time.Hour)

	_, err := ledger.Claim(context.Background(), uuid.Nil)
	assert.Error(t, err)

	store.setErr = errors.New("redis down")
	_, err = ledger.Claim(context.Background(), uuid.New())
	assert.EqualError(t, err, "redis down")
}
