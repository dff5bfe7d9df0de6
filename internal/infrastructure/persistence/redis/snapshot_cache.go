package redis

import (
	"context"
	"maps"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
	"github.com/lhtc/classpoint/pkg/circuitbreaker"
	"github.com/lhtc/classpoint/pkg/logger"
)

// TTLSnapshotCache is the default lifetime of cached snapshot entries.
const TTLSnapshotCache = 10 * time.Minute

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotCache is a write-through cache in front of a primary snapshot.KV.
// The primary store stays the source of truth: cache failures never fail a
// Get or Put, they only trip the breaker so later calls skip Redis.
type SnapshotCache struct {
	primary snapshot.KV
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	log     *logger.Logger

	// loads collapses concurrent misses for the same keys into one
	// primary read.
	loads singleflight.Group
}

var _ snapshot.KV = (*SnapshotCache)(nil)

// NewSnapshotCache wraps primary with cache. A nil breaker gets the
// CacheBreaker preset.
func NewSnapshotCache(primary snapshot.KV, cache *Cache, breaker *circuitbreaker.CircuitBreaker, ttl time.Duration, log *logger.Logger) *SnapshotCache {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("snapshot-cache"))
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
	}
	if ttl <= 0 {
		ttl = TTLSnapshotCache
	}
	return &SnapshotCache{primary: primary, cache: cache, breaker: breaker, ttl: ttl, log: log}
}

// Get serves from Redis when every requested key is cached, otherwise reads
// the primary store and refills the cache.
func (c *SnapshotCache) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	cacheKeys := make([]string, len(keys))
	for i, k := range keys {
		cacheKeys[i] = SnapshotKey(k)
	}

	var cached map[string][]byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var getErr error
		cached, getErr = c.cache.MGetBytes(ctx, cacheKeys...)
		return getErr
	})
	if err == nil && len(cached) == len(keys) {
		out := make(map[string][]byte, len(keys))
		for i, k := range keys {
			out[k] = cached[cacheKeys[i]]
		}
		return out, nil
	}
	if err != nil {
		c.log.Debug("snapshot cache read skipped", logger.Err(err))
	}

	v, err, _ := c.loads.Do(strings.Join(keys, "\x00"), func() (any, error) {
		entries, err := c.primary.Get(ctx, keys...)
		if err != nil {
			return nil, err
		}
		c.fill(ctx, entries)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(v.(map[string][]byte)), nil
}

// Put writes the primary store first, then refreshes the cache. When the
// cache refresh fails the stale entries are dropped.
func (c *SnapshotCache) Put(ctx context.Context, entries map[string][]byte) error {
	if err := c.primary.Put(ctx, entries); err != nil {
		return err
	}
	if !c.fill(ctx, entries) {
		c.invalidate(ctx, entries)
	}
	return nil
}

// Close closes the primary store and the Redis client.
func (c *SnapshotCache) Close() error {
	err := c.primary.Close()
	if cerr := c.cache.Close(); err == nil {
		err = cerr
	}
	return err
}

// Breaker exposes the circuit breaker state for health checks.
func (c *SnapshotCache) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

func (c *SnapshotCache) fill(ctx context.Context, entries map[string][]byte) bool {
	if len(entries) == 0 {
		return true
	}
	pairs := make(map[string][]byte, len(entries))
	for k, v := range entries {
		pairs[SnapshotKey(k)] = v
	}
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.MSetBytes(ctx, pairs, c.ttl)
	})
	if err != nil {
		c.log.Debug("snapshot cache fill skipped", logger.Err(err))
		return false
	}
	return true
}

func (c *SnapshotCache) invalidate(ctx context.Context, entries map[string][]byte) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, SnapshotKey(k))
	}
	// Not gated by the breaker.
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.log.Warn("snapshot cache invalidation failed", logger.Err(err))
	}
}
