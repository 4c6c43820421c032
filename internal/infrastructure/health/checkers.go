package health

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
	infraDB "github.com/kayendev-lutech/ecommerce/internal/infrastructure/db"
)

// ErrCacheUnhealthy is reported when the cache round trip probe fails.
var ErrCacheUnhealthy = errors.New("cache round trip failed")

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// CacheProber is satisfied by the cache manager.
type CacheProber interface {
	HealthCheck(ctx context.Context) bool
}

// CacheCheckName is the dependency name of the product cache probe.
const CacheCheckName = "cache"

type cacheHealthChecker struct{ prober CacheProber }

func (c *cacheHealthChecker) Name() string { return CacheCheckName }
func (c *cacheHealthChecker) Check(ctx context.Context) error {
	if !c.prober.HealthCheck(ctx) {
		return ErrCacheUnhealthy
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewCacheHealthChecker reports the product cache backend's round trip health.
func NewCacheHealthChecker(prober CacheProber) ports.HealthChecker {
	return &cacheHealthChecker{prober: prober}
}
