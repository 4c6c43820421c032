package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

// Store wraps a CacheBackend and absorbs its failures: reads degrade to a
// miss and writes to a no-op. Errors are logged and counted, never returned.
type Store struct {
	backend ports.CacheBackend
	log     *logrus.Logger
	metrics *Metrics
}

func NewStore(backend ports.CacheBackend, log *logrus.Logger, metrics *Metrics) *Store {
	if log == nil {
		log = discardLogger()
	}
	return &Store{backend: backend, log: log, metrics: metrics}
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (s *Store) fail(op, key string, err error) {
	s.metrics.backendError(op)
	s.log.WithFields(logrus.Fields{"op": op, "key": key}).WithError(err).Warn("cache backend error")
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	b, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.fail("get", key, err)
		return nil, false
	}
	return b, ok
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		s.fail("set", key, err)
	}
}

func (s *Store) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.fail("delete", keys[0], err)
	}
}

// DeleteByPattern returns the number of keys removed, or 0 when the backend
// failed or does not support pattern deletes.
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) int {
	n, err := s.backend.DeleteByPattern(ctx, pattern)
	if errors.Is(err, ports.ErrPatternDeleteUnsupported) {
		s.log.WithField("pattern", pattern).Warn("cache backend cannot delete by pattern, skipping")
		return 0
	}
	if err != nil {
		s.fail("delete_pattern", pattern, err)
		return n
	}
	return n
}

// SetNX reports true when the backend is unreachable so the caller proceeds
// to the source of truth instead of waiting on a lock nobody holds.
func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	ok, err := s.backend.SetNX(ctx, key, value, ttl)
	if err != nil {
		s.fail("setnx", key, err)
		return true
	}
	return ok
}

func (s *Store) Exists(ctx context.Context, key string) bool {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		s.fail("exists", key, err)
		return false
	}
	return ok
}

// getJSON decodes the entry at key into a T. Undecodable entries are dropped
// and reported as a miss.
func getJSON[T any](ctx context.Context, s *Store, key string) (*T, bool) {
	b, ok := s.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		s.log.WithField("key", key).WithError(err).Warn("discarding undecodable cache entry")
		s.Delete(ctx, key)
		return nil, false
	}
	return &v, true
}

func setJSON(ctx context.Context, s *Store, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.WithField("key", key).WithError(err).Error("failed to encode cache entry")
		return
	}
	s.Set(ctx, key, b, ttl)
}
