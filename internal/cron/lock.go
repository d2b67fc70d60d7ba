package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// A cycle that outlives the TTL loses its lock to the next replica.
const defaultLockTTL = 10 * time.Minute

// Lock coordinates exclusive cron runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// RedisLock holds one scheduler key per environment. The stored value is a
// per-acquisition token so only the holder can release it.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release is a no-op when this instance never acquired the key or the TTL
// already handed it to someone else.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.ReleaseIfOwner(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
