package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/repositories"
)

func TestRateLimitRepository_CountsPerClientWindow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repositories.NewRateLimitRedisRepository(client)
	fixed := time.Date(2024, 6, 1, 12, 30, 15, 0, time.UTC)
	repositories.SetRateLimitClock(repo, func() time.Time { return fixed })

	for i := 1; i <= 3; i++ {
		n, start, err := repo.IncrementWindow(ctx, "10.0.0.1", time.Minute, "ratelimit:client", 2*time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, n)
		require.True(t, start.Equal(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)))
	}

	n, _, err := repo.IncrementWindow(ctx, "10.0.0.2", time.Minute, "ratelimit:client", 2*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	keys := mr.Keys()
	require.Len(t, keys, 2)
	for _, k := range keys {
		require.Equal(t, 2*time.Minute, mr.TTL(k))
	}
}
