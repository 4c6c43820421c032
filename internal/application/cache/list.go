package cache

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ListInvalidator drops every cached list page of an entity. Filter
// combinations are unbounded, so pages are never invalidated selectively.
type ListInvalidator struct {
	store *Store
}

func NewListInvalidator(store *Store) *ListInvalidator {
	return &ListInvalidator{store: store}
}

// InvalidateAll deletes all keys matching "<entity>:list:*" and returns how
// many were removed.
func (l *ListInvalidator) InvalidateAll(ctx context.Context, entity string) int {
	pattern := ListPattern(entity)
	n := l.store.DeleteByPattern(ctx, pattern)
	l.store.metrics.invalidated("list")
	l.store.log.WithFields(logrus.Fields{"pattern": pattern, "deleted": n}).Debug("list cache invalidated")
	return n
}
