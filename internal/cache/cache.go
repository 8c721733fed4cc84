// Package cache wraps Redis for research results and API rate-limit counters.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by postpilot.
const DefaultPrefix = "postpilot:"

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements Cache on a go-redis client. Keys are stored under prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// Option customizes a RedisCache.
type Option func(*RedisCache)

// WithPrefix replaces DefaultPrefix, so several deployments can share one Redis.
func WithPrefix(prefix string) Option {
	return func(c *RedisCache) { c.prefix = prefix }
}

// NewRedisCache creates a RedisCache from a redis:// or rediss:// URL.
// No connection is made until the first command.
func NewRedisCache(redisURL string, opts ...Option) (*RedisCache, error) {
	ro, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := &RedisCache{client: redis.NewClient(ro), prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Get returns the value and whether it was present. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// IncrWithExpiry increments key and starts its expiry on the first increment
// only, so a counter covers a fixed window rather than sliding with traffic.
func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	key = c.prefix + key
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
