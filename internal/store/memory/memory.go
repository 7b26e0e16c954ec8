package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"timetracker/internal/core"
	"timetracker/internal/store"
)

var (
	_ store.ActivityStore = (*Store)(nil)
	_ store.DayMirror     = (*Store)(nil)
)

// Store keeps activities in process memory. It is used for local development
// and as the fake store in tests.
type Store struct {
	mu   sync.Mutex
	days map[string][]core.Activity
	now  func() time.Time
}

func New() *Store {
	return &Store{days: make(map[string][]core.Activity), now: time.Now}
}

// NewWithClock lets tests control the assigned CreatedAt values.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) ListActivities(_ context.Context, scope core.Scope) ([]core.Activity, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Activity(nil), s.days[scope.Key()]...)
	core.SortActivities(out)
	return out, nil
}

func (s *Store) CreateActivity(_ context.Context, scope core.Scope, in core.ActivityInput) (core.Activity, error) {
	if err := scope.Validate(); err != nil {
		return core.Activity{}, err
	}
	in = in.Normalize()
	a := core.Activity{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Category:  in.Category,
		Minutes:   in.Minutes,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[scope.Key()] = append(s.days[scope.Key()], a)
	return a, nil
}

func (s *Store) UpdateActivity(_ context.Context, scope core.Scope, id string, in core.ActivityInput) error {
	in = in.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.days[scope.Key()]
	for i := range items {
		if items[i].ID == id {
			items[i].Name = in.Name
			items[i].Category = in.Category
			items[i].Minutes = in.Minutes
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrNotFound, id)
}

func (s *Store) DeleteActivity(_ context.Context, scope core.Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.days[scope.Key()]
	for i := range items {
		if items[i].ID == id {
			s.days[scope.Key()] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrNotFound, id)
}

// ReplaceDay overwrites the stored day with a copy of items.
func (s *Store) ReplaceDay(_ context.Context, scope core.Scope, items []core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(items) == 0 {
		delete(s.days, scope.Key())
		return nil
	}
	s.days[scope.Key()] = append([]core.Activity(nil), items...)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
