package health_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/kayendev-lutech/ecommerce/internal/application/cache"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/db"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/health"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/memory"
)

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := health.NewRedisHealthChecker(client)
	require.Equal(t, "redis", hc.Name())
	require.NoError(t, hc.Check(context.Background()))

	mr.SetError("ERR down")
	require.Error(t, hc.Check(context.Background()))
}

func TestDBHealthChecker(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectPing()

	hc := health.NewDBHealthChecker(db.NewFromDB(sqlDB))
	require.Equal(t, "database", hc.Name())
	require.NoError(t, hc.Check(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

type downProber struct{}

func (downProber) HealthCheck(context.Context) bool { return false }

func TestCacheHealthChecker(t *testing.T) {
	mgr := cache.NewManager(memory.NewCache(), cache.ProductCacheConfig{}, nil, nil)
	require.NoError(t, health.NewCacheHealthChecker(mgr).Check(context.Background()))

	err := health.NewCacheHealthChecker(downProber{}).Check(context.Background())
	require.ErrorIs(t, err, health.ErrCacheUnhealthy)
}
