package redis_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/redis"
)

func newTestCache(t *testing.T, prefix string) (*redis.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewRedisCache(client, prefix), mr
}

func TestRedisCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "")

	_, ok, err := c.Get(ctx, "product:1:meta")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "product:1:meta", []byte(`{"id":1}`), time.Minute))
	v, ok, err := c.Get(ctx, "product:1:meta")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":1}`, string(v))
	require.Equal(t, time.Minute, mr.TTL("product:1:meta"))

	mr.FastForward(time.Minute)
	_, ok, err = c.Get(ctx, "product:1:meta")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_Prefix(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "shop")

	require.NoError(t, c.Set(ctx, "product:1:price", []byte("1"), 0))
	require.True(t, mr.Exists("shop:product:1:price"))

	exists, err := c.Exists(ctx, "product:1:price")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, c.Delete(ctx, "product:1:price"))
	require.False(t, mr.Exists("shop:product:1:price"))
}

func TestRedisCache_SetNX(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "")

	ok, err := c.SetNX(ctx, "k:lock", []byte("1"), 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.SetNX(ctx, "k:lock", []byte("1"), 5*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(5 * time.Second)
	ok, err = c.SetNX(ctx, "k:lock", []byte("1"), 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisCache_DeleteByPatternScansAllPages(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "shop")

	for i := 0; i < 450; i++ {
		require.NoError(t, mr.Set("shop:product:list:page:"+strconv.Itoa(i), "x"))
	}
	require.NoError(t, mr.Set("shop:product:1:meta", "x"))
	require.NoError(t, mr.Set("product:list:unprefixed", "x"))

	n, err := c.DeleteByPattern(ctx, "product:list:*")
	require.NoError(t, err)
	require.Equal(t, 450, n)
	require.True(t, mr.Exists("shop:product:1:meta"))
	require.True(t, mr.Exists("product:list:unprefixed"))
}

func TestRedisCache_Errors(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "")
	mr.SetError("ERR backend unavailable")

	_, _, err := c.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, c.Set(ctx, "k", []byte("v"), time.Second))
	_, err = c.SetNX(ctx, "k", []byte("v"), time.Second)
	require.Error(t, err)
	_, err = c.DeleteByPattern(ctx, "*")
	require.Error(t, err)
}
