package store

import (
	"context"

	"timetracker/internal/cache"
	"timetracker/internal/core"
)

// CachedStore serves repeated day reads from an LRU cache and drops the cached
// day on every write to it.
type CachedStore struct {
	next  ActivityStore
	cache cache.Cache[[]core.Activity]
}

var _ ActivityStore = (*CachedStore)(nil)

func NewCachedStore(next ActivityStore, c cache.Cache[[]core.Activity]) *CachedStore {
	return &CachedStore{next: next, cache: c}
}

func (s *CachedStore) ListActivities(ctx context.Context, scope core.Scope) ([]core.Activity, error) {
	if items, ok := s.cache.Get(scope.Key()); ok {
		return append([]core.Activity(nil), items...), nil
	}
	items, err := s.next.ListActivities(ctx, scope)
	if err != nil {
		return nil, err
	}
	s.cache.Set(scope.Key(), append([]core.Activity(nil), items...))
	return items, nil
}

func (s *CachedStore) CreateActivity(ctx context.Context, scope core.Scope, in core.ActivityInput) (core.Activity, error) {
	defer s.cache.Delete(scope.Key())
	return s.next.CreateActivity(ctx, scope, in)
}

func (s *CachedStore) UpdateActivity(ctx context.Context, scope core.Scope, id string, in core.ActivityInput) error {
	defer s.cache.Delete(scope.Key())
	return s.next.UpdateActivity(ctx, scope, id, in)
}

func (s *CachedStore) DeleteActivity(ctx context.Context, scope core.Scope, id string) error {
	defer s.cache.Delete(scope.Key())
	return s.next.DeleteActivity(ctx, scope, id)
}

// Ping forwards to the wrapped store when it supports health checks.
func (s *CachedStore) Ping(ctx context.Context) error {
	if hc, ok := s.next.(HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}
