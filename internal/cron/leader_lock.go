package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LeaderLock elects the replica that runs a tick.
type LeaderLock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLeaderLock holds a Redis key stamped with a per-acquire token. The lease
// outlives one tick so a crashed leader frees the key on its own.
type RedisLeaderLock struct {
	store lockStore
	key   string
	lease time.Duration
	token string
}

// NewRedisLeaderLock builds a lock whose lease defaults to twice the tick interval.
func NewRedisLeaderLock(store lockStore, key string, tick time.Duration) (*RedisLeaderLock, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if tick <= 0 {
		tick = defaultTick
	}
	return &RedisLeaderLock{store: store, key: key, lease: 2 * tick}, nil
}

func (l *RedisLeaderLock) TryAcquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.lease)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release deletes the key only while it still carries this holder's token.
func (l *RedisLeaderLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", l.key, err)
	case current != token:
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("del %s: %w", l.key, err)
	}
	return nil
}
