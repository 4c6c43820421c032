package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kayendev-lutech/ecommerce/internal/core/domain/product"
)

// ProductCacheConfig holds the per-entry TTLs of the split product cache.
type ProductCacheConfig struct {
	MetaTTL     time.Duration
	PriceTTL    time.Duration
	VariantsTTL time.Duration
	ListTTL     time.Duration
	GetOrSetTTL time.Duration
}

func DefaultProductCacheConfig() ProductCacheConfig {
	return ProductCacheConfig{
		MetaTTL:     24 * time.Hour,
		PriceTTL:    5 * time.Minute,
		VariantsTTL: 5 * time.Minute,
		ListTTL:     3 * time.Minute,
		GetOrSetTTL: 2 * time.Minute,
	}
}

// Merge returns c with every non-zero TTL of o applied over it.
func (c ProductCacheConfig) Merge(o ProductCacheConfig) ProductCacheConfig {
	if o.MetaTTL > 0 {
		c.MetaTTL = o.MetaTTL
	}
	if o.PriceTTL > 0 {
		c.PriceTTL = o.PriceTTL
	}
	if o.VariantsTTL > 0 {
		c.VariantsTTL = o.VariantsTTL
	}
	if o.ListTTL > 0 {
		c.ListTTL = o.ListTTL
	}
	if o.GetOrSetTTL > 0 {
		c.GetOrSetTTL = o.GetOrSetTTL
	}
	return c
}

var (
	priceFields = map[string]bool{
		product.FieldPrice:         true,
		product.FieldDiscountPrice: true,
		product.FieldIsActive:      true,
		product.FieldIsVisible:     true,
	}
	metaFields = map[string]bool{
		product.FieldName:         true,
		product.FieldSlug:         true,
		product.FieldDescription:  true,
		product.FieldCurrencyCode: true,
		product.FieldCategoryID:   true,
		product.FieldImageURL:     true,
	}
)

// UpdateKind is the cache action chosen for a set of changed fields.
type UpdateKind int

const (
	UpdateKindPrice UpdateKind = iota
	UpdateKindMeta
	UpdateKindInvalidate
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateKindPrice:
		return "price"
	case UpdateKindMeta:
		return "meta"
	default:
		return "invalidate"
	}
}

// Classify picks the narrowest cache action covering fields. Anything outside
// the price and meta sets, or a mix of both, forces a full invalidation.
func Classify(fields []string) UpdateKind {
	onlyPrice, onlyMeta := true, true
	for _, f := range fields {
		onlyPrice = onlyPrice && priceFields[f]
		onlyMeta = onlyMeta && metaFields[f]
	}
	switch {
	case onlyPrice:
		return UpdateKindPrice
	case onlyMeta:
		return UpdateKindMeta
	default:
		return UpdateKindInvalidate
	}
}

// SplitProductCache stores a product as three independently expiring
// entries: meta, price and variants. A read is a hit only when all three are
// present.
type SplitProductCache struct {
	store *Store
	guard *Guard
	lists *ListInvalidator
	cfg   ProductCacheConfig
	log   *logrus.Logger
}

func NewSplitProductCache(store *Store, guard *Guard, cfg ProductCacheConfig) *SplitProductCache {
	return &SplitProductCache{
		store: store,
		guard: guard,
		lists: NewListInvalidator(store),
		cfg:   DefaultProductCacheConfig().Merge(cfg),
		log:   store.log,
	}
}

func (c *SplitProductCache) Config() ProductCacheConfig { return c.cfg }

// Guard exposes the stampede guard so callers can wrap reloads with GetOrSet.
func (c *SplitProductCache) Guard() *Guard { return c.guard }

func (c *SplitProductCache) Get(ctx context.Context, id int64) (*product.Product, bool) {
	var (
		meta     *product.ProductMeta
		price    *product.ProductPrice
		variants *[]product.Variant
	)
	// The group never fails: misses are reported through nil results.
	var g errgroup.Group
	g.Go(func() error {
		meta, _ = getJSON[product.ProductMeta](ctx, c.store, MetaKey(id))
		return nil
	})
	g.Go(func() error {
		price, _ = getJSON[product.ProductPrice](ctx, c.store, PriceKey(id))
		return nil
	})
	g.Go(func() error {
		variants, _ = getJSON[[]product.Variant](ctx, c.store, VariantsKey(id))
		return nil
	})
	_ = g.Wait()

	if meta == nil || price == nil || variants == nil {
		c.store.metrics.miss()
		c.log.WithFields(logrus.Fields{
			"product_id": id,
			"meta":       meta != nil,
			"price":      price != nil,
			"variants":   variants != nil,
		}).Debug("product cache miss")
		return nil, false
	}
	c.store.metrics.hit()
	c.log.WithField("product_id", id).Debug("product cache hit")
	return product.Compose(*meta, *price, *variants), true
}

// Set writes all three entries in parallel. A positive ttl replaces the
// configured TTL of every entry. Each write is independent.
func (c *SplitProductCache) Set(ctx context.Context, id int64, p *product.Product, ttl time.Duration) {
	metaTTL, priceTTL, variantsTTL := c.cfg.MetaTTL, c.cfg.PriceTTL, c.cfg.VariantsTTL
	if ttl > 0 {
		metaTTL, priceTTL, variantsTTL = ttl, ttl, ttl
	}
	variants := p.Variants
	if variants == nil {
		variants = []product.Variant{}
	}

	var g errgroup.Group
	g.Go(func() error {
		setJSON(ctx, c.store, MetaKey(id), p.Meta(), metaTTL)
		return nil
	})
	g.Go(func() error {
		setJSON(ctx, c.store, PriceKey(id), p.PriceSnapshot(), priceTTL)
		return nil
	})
	g.Go(func() error {
		setJSON(ctx, c.store, VariantsKey(id), variants, variantsTTL)
		return nil
	})
	_ = g.Wait()
	c.log.WithField("product_id", id).Info("product cached")
}

// UpdateMeta merges patch over the cached meta. Without a cached meta the
// patch is written only if it describes a complete snapshot; a partial meta
// would otherwise be served as a hit.
func (c *SplitProductCache) UpdateMeta(ctx context.Context, id int64, patch product.MetaPatch) {
	c.dropDetail(ctx, id)
	key := MetaKey(id)
	meta, ok := getJSON[product.ProductMeta](ctx, c.store, key)
	if !ok {
		if !patch.Complete() {
			c.log.WithField("product_id", id).Debug("no cached meta to merge into, skipping")
			return
		}
		meta = &product.ProductMeta{}
	}
	patch.ApplyTo(meta)
	setJSON(ctx, c.store, key, meta, c.cfg.MetaTTL)
	c.log.WithField("product_id", id).Info("product meta cache updated")
}

func (c *SplitProductCache) UpdatePrice(ctx context.Context, id int64, price product.ProductPrice) {
	setJSON(ctx, c.store, PriceKey(id), price, c.cfg.PriceTTL)
	c.dropDetail(ctx, id)
	c.log.WithField("product_id", id).Info("product price cache updated")
}

func (c *SplitProductCache) UpdateVariants(ctx context.Context, id int64, variants []product.Variant) {
	if variants == nil {
		variants = []product.Variant{}
	}
	setJSON(ctx, c.store, VariantsKey(id), variants, c.cfg.VariantsTTL)
	c.dropDetail(ctx, id)
	c.log.WithField("product_id", id).Info("product variants cache updated")
}

// dropDetail removes the full reload snapshot so a later fallback read cannot
// return the pre-update product.
func (c *SplitProductCache) dropDetail(ctx context.Context, id int64) {
	c.store.Delete(ctx, DetailKey(id))
}

// Invalidate evicts every entry of the product, including stampede locks.
func (c *SplitProductCache) Invalidate(ctx context.Context, id int64) {
	c.store.Delete(ctx,
		MetaKey(id),
		PriceKey(id),
		VariantsKey(id),
		DetailKey(id),
		LockKey(id),
		GuardLockKey(DetailKey(id)),
	)
	c.store.metrics.invalidated("product")
	c.log.WithField("product_id", id).Info("product cache invalidated")
}

func (c *SplitProductCache) InvalidateList(ctx context.Context) {
	n := c.lists.InvalidateAll(ctx, ProductPrefix)
	c.log.WithField("deleted", n).Info("product list cache invalidated")
}

// SmartUpdate refreshes only the entries touched by changedFields, using
// current as the post-update state, then drops all list pages.
func (c *SplitProductCache) SmartUpdate(ctx context.Context, id int64, changedFields []string, current *product.Product) UpdateKind {
	kind := Classify(changedFields)
	switch kind {
	case UpdateKindPrice:
		c.UpdatePrice(ctx, id, current.PriceSnapshot())
	case UpdateKindMeta:
		c.UpdateMeta(ctx, id, current.MetaPatch())
	default:
		c.Invalidate(ctx, id)
	}
	c.log.WithFields(logrus.Fields{"product_id": id, "fields": changedFields, "action": kind.String()}).Debug("smart cache update")
	c.InvalidateList(ctx)
	return kind
}
