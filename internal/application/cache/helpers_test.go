package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
	"github.com/kayendev-lutech/ecommerce/internal/application/cache"
	"github.com/kayendev-lutech/ecommerce/internal/infrastructure/memory"
)

var errBackendDown = errors.New("connection refused")

// brokenBackend fails every operation.
type brokenBackend struct{ err error }

func (b brokenBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, b.err }
func (b brokenBackend) Set(context.Context, string, []byte, time.Duration) error {
	return b.err
}
func (b brokenBackend) Delete(context.Context, ...string) error { return b.err }
func (b brokenBackend) DeleteByPattern(context.Context, string) (int, error) {
	return 0, b.err
}
func (b brokenBackend) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, b.err
}
func (b brokenBackend) Exists(context.Context, string) (bool, error) { return false, b.err }

var _ ports.CacheBackend = brokenBackend{}

// noPatternBackend is a working store that cannot delete by pattern.
type noPatternBackend struct{ *memory.Cache }

func (noPatternBackend) DeleteByPattern(context.Context, string) (int, error) {
	return 0, ports.ErrPatternDeleteUnsupported
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(b ports.CacheBackend, opts ...cache.GuardOption) *cache.Manager {
	return cache.NewManager(b, cache.ProductCacheConfig{}, nil, cache.NewMetrics(nil), opts...)
}

func ptr[T any](v T) *T { return &v }

func sampleProduct(id int64) *product.Product {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &product.Product{
		ID:            id,
		Name:          "Shoe",
		Slug:          "shoe",
		Description:   "running shoe",
		Price:         100,
		DiscountPrice: ptr(90.0),
		CurrencyCode:  "VND",
		CategoryID:    3,
		ImageURL:      "http://img/shoe.png",
		IsActive:      true,
		IsVisible:     true,
		Variants:      []product.Variant{{ID: 1, Name: "42", SKU: "SHOE-42", Price: 100}},
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// counterValue sums the samples of a counter family whose label matches.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var got float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					got += m.GetCounter().GetValue()
				}
			}
		}
	}
	return got
}
