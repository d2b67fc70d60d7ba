package payoswebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cakeverse/cakeverse-backend/pkg/redis"
)

// IdempotencyGuard short-circuits repeated gateway deliveries. The deposit
// status check stays authoritative; the guard only saves the database trip.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark claims deliveryKey and reports whether it was already claimed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, deliveryKey string) (bool, error) {
	if deliveryKey == "" {
		return false, errors.New("delivery key is required")
	}
	key := g.store.IdempotencyKey(g.scope, deliveryKey)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release drops the claim so the gateway's retry is processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, deliveryKey string) error {
	if deliveryKey == "" {
		return errors.New("delivery key is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, deliveryKey))
}
