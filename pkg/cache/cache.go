// Package cache stores raw upstream responses so restarts do not refetch
// unchanged tables.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"passages/pkg/config"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// Nop never hits and discards writes.
type Nop struct{}

func (Nop) GetCache(ctx context.Context, key string) ([]byte, bool)   { return nil, false }
func (Nop) SetCache(ctx context.Context, key string, val []byte) error { return nil }

// RedisCache implements Cacher on a Redis server. Entries expire after ttl.
type RedisCache struct {
	rc     *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rc: rc, ttl: ttl, prefix: "passages:"}
}

// OpenRedis connects to addr and verifies the server answers.
func OpenRedis(ctx context.Context, addr, pass string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisCache(rc, ttl), nil
}

func (c *RedisCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rc.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("Cache: redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) SetCache(ctx context.Context, key string, val []byte) error {
	return c.rc.Set(ctx, c.prefix+key, val, c.ttl).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.rc.Close()
}

// Open selects the backend named in cfg. The sqlite backend is the
// application store passed in; the returned close function is never nil.
func Open(ctx context.Context, cfg *config.CacheConfig, sqlite Cacher) (Cacher, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "sqlite":
		if sqlite == nil {
			return nil, noop, fmt.Errorf("sqlite cache backend requires a store")
		}
		return sqlite, noop, nil
	case "redis":
		rc, err := OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Duration(cfg.TTL))
		if err != nil {
			return nil, noop, err
		}
		return rc, rc.Close, nil
	case "none", "":
		return Nop{}, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
