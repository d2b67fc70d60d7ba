package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

const (
	keyNamespace      = "cv"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	lockPrefix        = "lock"
)

var errNotInitialized = errors.New("redis client not initialized")

// fixedWindowScript increments KEYS[1] and arms its expiry on the first hit.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type cmdable interface {
	redis.Scripter
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client is the Redis surface used for request idempotency, webhook
// de-duplication, throttling and scheduler locks.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what the idempotency middleware and the gateway
// webhook guard need.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New connects with the configured pool settings and pings once.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Debug(logg.WithField(ctx, "redis_db", opts.DB), "redis connection established")
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	}
	opts.PoolSize = firstPositive(opts.PoolSize, cfg.PoolSize)
	opts.MinIdleConns = firstPositive(opts.MinIdleConns, cfg.MinIdleConns)
	opts.DialTimeout = firstPositiveDuration(opts.DialTimeout, cfg.DialTimeout)
	opts.ReadTimeout = firstPositiveDuration(opts.ReadTimeout, cfg.ReadTimeout)
	opts.WriteTimeout = firstPositiveDuration(opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func firstPositive(current, fallback int) int {
	if current > 0 {
		return current
	}
	return fallback
}

func firstPositiveDuration(current, fallback time.Duration) time.Duration {
	if current > 0 {
		return current
	}
	return fallback
}

// Get returns the value at key; a missing key yields redis.Nil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX writes value only when key is absent.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, keys...).Err()
}

// ReleaseIfOwner deletes key only while it still stores owner. It reports
// whether the key was removed.
func (c *Client) ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	removed, err := releaseScript.Run(ctx, c.store, []string{key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

// FixedWindowAllow counts one hit against scope and reports whether the
// caller is still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c.store == nil {
		return false, 0, errNotInitialized
	}
	if window <= 0 {
		return false, 0, errors.New("rate limit window must be positive")
	}
	count, err := fixedWindowScript.Run(ctx, c.store, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return c.buildKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return c.buildKey(rateLimitPrefix, scope)
}

// LockKey namespaces scheduler locks; callers include the environment.
func (c *Client) LockKey(name string) string {
	return c.buildKey(lockPrefix, name)
}

func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
