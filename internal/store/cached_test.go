package store_test

import (
	"context"
	"testing"
	"time"

	"timetracker/internal/cache"
	"timetracker/internal/core"
	"timetracker/internal/store"
	"timetracker/internal/store/memory"
)

type countingStore struct {
	*memory.Store
	lists int
}

func (c *countingStore) ListActivities(ctx context.Context, scope core.Scope) ([]core.Activity, error) {
	c.lists++
	return c.Store.ListActivities(ctx, scope)
}

func TestCachedStoreInvalidatesOnWrite(t *testing.T) {
	inner := &countingStore{Store: memory.New()}
	s := store.NewCachedStore(inner, cache.NewLRUCache[[]core.Activity](10, time.Minute))
	ctx := context.Background()
	scope, _ := core.NewScope("u1", "2025-02-01")

	if _, err := s.CreateActivity(ctx, scope, core.ActivityInput{Name: "Read", Minutes: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		items, err := s.ListActivities(ctx, scope)
		if err != nil || len(items) != 1 {
			t.Fatalf("list: %v %+v", err, items)
		}
	}
	if inner.lists != 1 {
		t.Fatalf("expected one backend read, got %d", inner.lists)
	}

	if _, err := s.CreateActivity(ctx, scope, core.ActivityInput{Name: "Gym", Minutes: 20}); err != nil {
		t.Fatalf("create: %v", err)
	}
	items, _ := s.ListActivities(ctx, scope)
	if len(items) != 2 || inner.lists != 2 {
		t.Fatalf("expected refreshed read after write, items=%d lists=%d", len(items), inner.lists)
	}
}
