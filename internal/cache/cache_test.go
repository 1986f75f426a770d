package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr(), TTL: 10 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func exerciseJoinCache(t *testing.T, c JoinCache) {
	ctx := context.Background()

	_, err := c.Get(ctx, "MAP01")
	assert.True(t, IsCacheMiss(err), "пустой кеш должен промахиваться")

	snap := []byte{0xED, 0xDE, 0xEE, 0x7F, 1, 2, 3}
	require.NoError(t, c.Put(ctx, "MAP01", snap))

	got, err := c.Get(ctx, "MAP01")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	_, err = c.Get(ctx, "MAP02")
	assert.True(t, IsCacheMiss(err), "снимки разных карт не смешиваются")

	require.NoError(t, c.Invalidate(ctx, "MAP01"))
	_, err = c.Get(ctx, "MAP01")
	assert.True(t, IsCacheMiss(err))

	assert.ErrorIs(t, c.Put(ctx, "", snap), ErrInvalidKey)

	m := c.GetMetrics()
	assert.Equal(t, int64(4), m.TotalRequests)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(3), m.CacheMisses)
	assert.InDelta(t, 0.25, m.HitRatio, 1e-9)
}

func TestMemoryCache(t *testing.T) {
	exerciseJoinCache(t, NewMemoryCache(time.Minute))
}

func TestRedisCache(t *testing.T) {
	c, _ := newRedis(t)
	exerciseJoinCache(t, c)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(5 * time.Second)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "MAP01", []byte{1}))
	now = now.Add(4 * time.Second)
	_, err := c.Get(ctx, "MAP01")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "MAP01")
	assert.True(t, IsCacheMiss(err), "снимок должен истечь")
}

func TestMemoryCacheCopiesInput(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	buf := []byte{1, 2, 3}
	require.NoError(t, c.Put(ctx, "MAP01", buf))
	buf[0] = 9

	got, err := c.Get(ctx, "MAP01")
	require.NoError(t, err)
	assert.Equal(t, byte(1), got[0])
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "MAP01", []byte{1}))
	assert.Equal(t, 10*time.Second, mr.TTL(keyPrefix+"MAP01"))

	mr.FastForward(11 * time.Second)
	_, err := c.Get(ctx, "MAP01")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}
