package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLockTTL  = 5 * time.Second
	DefaultLockWait = 100 * time.Millisecond
)

var lockToken = []byte("1")

// Guard serializes recomputation of missing keys. Callers in the same process
// are coalesced with singleflight; callers in other processes coordinate
// through a short-lived lock key in the shared backend.
type Guard struct {
	store    *Store
	lockTTL  time.Duration
	lockWait time.Duration
	sf       singleflight.Group
}

type GuardOption func(*Guard)

// WithLockTTL bounds how long a crashed recomputation can hold the lock.
func WithLockTTL(d time.Duration) GuardOption {
	return func(g *Guard) { g.lockTTL = d }
}

// WithLockWait sets how long a contended caller waits before re-reading.
func WithLockWait(d time.Duration) GuardOption {
	return func(g *Guard) { g.lockWait = d }
}

func NewGuard(store *Store, opts ...GuardOption) *Guard {
	g := &Guard{store: store, lockTTL: DefaultLockTTL, lockWait: DefaultLockWait}
	for _, o := range opts {
		o(g)
	}
	return g
}

// GetOrSet returns the value cached at key, computing and caching it on a
// miss. A nil result from compute means "not found": it is returned as nil
// and never cached. Errors from compute are returned unchanged.
func GetOrSet[T any](ctx context.Context, g *Guard, key string, ttl time.Duration, compute func(ctx context.Context) (*T, error)) (*T, error) {
	if v, ok := getJSON[T](ctx, g.store, key); ok {
		g.store.metrics.hit()
		return v, nil
	}
	g.store.metrics.miss()

	// The flight is shared, so it must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(key, func() (any, error) {
		return g.fill(flightCtx, key, ttl, func(ctx context.Context) (any, error) {
			v, err := compute(ctx)
			if err != nil || v == nil {
				return nil, err
			}
			return v, nil
		})
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	b, _ := res.Val.([]byte)
	if b == nil {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

// fill runs the lock protocol for key and returns the encoded value, or nil
// when compute found nothing.
func (g *Guard) fill(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) ([]byte, error) {
	lockKey := GuardLockKey(key)
	owner := g.store.SetNX(ctx, lockKey, lockToken, g.lockTTL)
	g.store.metrics.lock(owner)

	if owner {
		defer g.store.Delete(context.WithoutCancel(ctx), lockKey)
		// A previous holder may have filled the key since our first read.
		if b, ok := g.store.Get(ctx, key); ok {
			return b, nil
		}
	} else {
		timer := time.NewTimer(g.lockWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if b, ok := g.store.Get(ctx, key); ok {
			return b, nil
		}
		g.store.log.WithField("key", key).Debug("lock holder has not filled key, recomputing")
	}

	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	g.store.Set(ctx, key, b, ttl)
	g.store.log.WithFields(logrus.Fields{"key": key, "ttl": ttl}).Debug("cache filled")
	return b, nil
}
