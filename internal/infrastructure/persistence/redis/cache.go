// Package redis implements the optional Redis layer: a snapshot cache in
// front of the primary storage driver and the pub/sub channel used to fan
// domain events out to other processes.
package redis

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key namespaces. Everything classpoint writes to Redis starts with
// "classpoint:" so a shared instance stays readable.
const (
	PrefixSnapshot = "classpoint:snapshot:"
	PrefixPubSub   = "classpoint:events:"
)

// SnapshotKey is the cache key of one snapshot entry.
func SnapshotKey(key string) string { return PrefixSnapshot + key }

// PubSubChannel is the channel an event type is published on.
func PubSubChannel(eventType string) string { return PrefixPubSub + eventType }

// ErrUnreachable wraps the ping failure of NewCache.
var ErrUnreachable = errors.New("redis: server unreachable")

// Config is the subset of go-redis options classpoint exposes through
// REDIS_* settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	// MaxRetries of -1 disables go-redis retries.
	MaxRetries int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig targets a local Redis.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// NewClient builds a client without contacting the server.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(cfg.options())
}

// Cache is a byte-oriented view of a Redis client.
type Cache struct {
	rdb *redis.Client
}

// NewCache connects and pings once within cfg.DialTimeout.
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	rdb := NewClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Join(ErrUnreachable, err)
	}
	return &Cache{rdb: rdb}, nil
}

// NewCacheFromClient wraps a client without pinging it.
func NewCacheFromClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Close() error                   { return c.rdb.Close() }
func (c *Cache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// MGetBytes reads keys in one round trip. Missing keys are left out of the
// result.
func (c *Cache) MGetBytes(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

// MSetBytes writes all pairs with one TTL inside MULTI/EXEC. A zero ttl
// keeps the keys forever.
func (c *Cache) MSetBytes(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error {
	if len(pairs) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range pairs {
			pipe.Set(ctx, k, v, max(ttl, 0))
		}
		return nil
	})
	return err
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Publish sends an encoded event.
func (c *Cache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// PSubscribe subscribes to a channel pattern. The caller closes the
// returned PubSub.
func (c *Cache) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	return c.rdb.PSubscribe(ctx, patterns...)
}
