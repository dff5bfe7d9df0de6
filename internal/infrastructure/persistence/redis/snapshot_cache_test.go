package redis

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
	"github.com/lhtc/classpoint/pkg/circuitbreaker"
)

// unreachableCache points at a port nothing listens on.
func unreachableCache() *Cache {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.MaxRetries = -1
	cfg.MinIdleConns = 0
	cfg.DialTimeout = 200 * time.Millisecond
	return NewCacheFromClient(NewClient(cfg))
}

func TestSnapshotCache_FallsBackWhenRedisDown(t *testing.T) {
	primary := snapshot.NewMemoryKV()
	c := NewSnapshotCache(primary, unreachableCache(), nil, 0, nil)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, map[string][]byte{snapshot.KeyActiveClass: []byte("c1")}))

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, snapshot.KeyActiveClass)
		require.NoError(t, err)
		assert.Equal(t, []byte("c1"), got[snapshot.KeyActiveClass])
	}

	assert.Equal(t, circuitbreaker.StateOpen, c.Breaker().State())
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "classpoint:snapshot:lhtc_students", SnapshotKey(snapshot.KeyStudents))
	assert.Equal(t, "classpoint:events:ledger.level_up", PubSubChannel("ledger.level_up"))
}

func TestSnapshotCache_WriteThrough(t *testing.T) {
	addr := os.Getenv("CLASSPOINT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLASSPOINT_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Host, cfg.Port = splitAddr(t, addr)
	cache, err := NewCache(ctx, cfg)
	require.NoError(t, err)

	primary := snapshot.NewMemoryKV()
	c := NewSnapshotCache(primary, cache, nil, time.Minute, nil)
	defer c.Close()

	require.NoError(t, c.Put(ctx, map[string][]byte{snapshot.KeyActiveClass: []byte("c9")}))

	cached, err := cache.MGetBytes(ctx, SnapshotKey(snapshot.KeyActiveClass))
	require.NoError(t, err)
	assert.Equal(t, []byte("c9"), cached[SnapshotKey(snapshot.KeyActiveClass)])

	// Served from Redis even after the primary diverges.
	require.NoError(t, primary.Put(ctx, map[string][]byte{snapshot.KeyActiveClass: []byte("other")}))
	got, err := c.Get(ctx, snapshot.KeyActiveClass)
	require.NoError(t, err)
	assert.Equal(t, []byte("c9"), got[snapshot.KeyActiveClass])

	require.NoError(t, cache.Delete(ctx, SnapshotKey(snapshot.KeyActiveClass)))
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}
