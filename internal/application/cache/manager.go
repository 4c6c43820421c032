package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

const (
	healthKey = "health:check"
	healthTTL = time.Minute
)

var healthValue = []byte("ok")

// Manager owns the backend connection shared by every cache built on it.
// It is constructed once at startup and passed to the services that need it.
type Manager struct {
	backend ports.CacheBackend
	store   *Store
	guard   *Guard
	product *SplitProductCache
	log     *logrus.Logger
	sf      singleflight.Group
}

func NewManager(backend ports.CacheBackend, cfg ProductCacheConfig, log *logrus.Logger, metrics *Metrics, opts ...GuardOption) *Manager {
	store := NewStore(backend, log, metrics)
	guard := NewGuard(store, opts...)
	return &Manager{
		backend: backend,
		store:   store,
		guard:   guard,
		product: NewSplitProductCache(store, guard, cfg),
		log:     store.log,
	}
}

// ProductCache returns the shared product cache.
func (m *Manager) ProductCache() *SplitProductCache { return m.product }

// NewProductCache builds a product cache on the shared backend whose TTLs are
// the shared configuration with the non-zero fields of override applied.
func (m *Manager) NewProductCache(override ProductCacheConfig) *SplitProductCache {
	return NewSplitProductCache(m.store, m.guard, m.product.Config().Merge(override))
}

func (m *Manager) Guard() *Guard { return m.guard }

// HealthCheck writes, reads back and deletes a sentinel key, reporting
// whether the backend round-tripped it. Concurrent probes share one round trip.
func (m *Manager) HealthCheck(ctx context.Context) bool {
	res, _, _ := m.sf.Do(healthKey, func() (any, error) {
		return m.probe(ctx), nil
	})
	ok, _ := res.(bool)
	return ok
}

func (m *Manager) probe(ctx context.Context) bool {
	if err := m.backend.Set(ctx, healthKey, healthValue, healthTTL); err != nil {
		m.log.WithError(err).Warn("cache health check: write failed")
		return false
	}
	got, found, err := m.backend.Get(ctx, healthKey)
	if err != nil {
		m.log.WithError(err).Warn("cache health check: read failed")
		return false
	}
	if err := m.backend.Delete(ctx, healthKey); err != nil {
		m.log.WithError(err).Warn("cache health check: delete failed")
	}
	return found && bytes.Equal(got, healthValue)
}
