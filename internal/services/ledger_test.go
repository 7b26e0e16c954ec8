package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timetracker/internal/core"
	"timetracker/internal/store/memory"
)

// flakyStore wraps the memory store and fails calls while down is set.
type flakyStore struct {
	*memory.Store
	down bool
}

var errDown = errors.New("connection refused")

func (f *flakyStore) ListActivities(ctx context.Context, s core.Scope) ([]core.Activity, error) {
	if f.down {
		return nil, errDown
	}
	return f.Store.ListActivities(ctx, s)
}

func (f *flakyStore) CreateActivity(ctx context.Context, s core.Scope, in core.ActivityInput) (core.Activity, error) {
	if f.down {
		return core.Activity{}, errDown
	}
	return f.Store.CreateActivity(ctx, s, in)
}

func (f *flakyStore) UpdateActivity(ctx context.Context, s core.Scope, id string, in core.ActivityInput) error {
	if f.down {
		return errDown
	}
	return f.Store.UpdateActivity(ctx, s, id, in)
}

func (f *flakyStore) DeleteActivity(ctx context.Context, s core.Scope, id string) error {
	if f.down {
		return errDown
	}
	return f.Store.DeleteActivity(ctx, s, id)
}

func newClockStore() *memory.Store {
	base := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	n := 0
	return memory.NewWithClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	})
}

func testScope(t *testing.T) core.Scope {
	t.Helper()
	s, err := core.NewScope("user-1", "2025-03-01")
	require.NoError(t, err)
	return s
}

func openLedger(t *testing.T, st *flakyStore) *Ledger {
	t.Helper()
	l, err := OpenLedger(context.Background(), st, testScope(t))
	require.NoError(t, err)
	return l
}

func TestNewLedgerRejectsBadScope(t *testing.T) {
	_, err := NewLedger(memory.New(), core.Scope{})
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = NewLedger(nil, testScope(t))
	require.Error(t, err)
}

func TestAddValidation(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	ctx := context.Background()

	cases := []struct {
		name string
		in   core.ActivityInput
		want error
	}{
		{"blank name", core.ActivityInput{Name: "   ", Minutes: 10}, core.ErrInvalidInput},
		{"zero minutes", core.ActivityInput{Name: "Read", Minutes: 0}, core.ErrInvalidInput},
		{"negative minutes", core.ActivityInput{Name: "Read", Minutes: -1}, core.ErrInvalidInput},
		{"whole day plus one", core.ActivityInput{Name: "Read", Minutes: 1441}, core.ErrBudgetExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Add(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
			require.Empty(t, l.Activities())
			require.Zero(t, l.TotalMinutes())
		})
	}
}

func TestAddTrimsNameAndAppends(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	a, err := l.Add(context.Background(), core.ActivityInput{Name: "  Read  ", Category: "", Minutes: 30})
	require.NoError(t, err)
	require.Equal(t, "Read", a.Name)
	require.NotEmpty(t, a.ID)
	require.False(t, a.CreatedAt.IsZero())
	require.Equal(t, 30, l.TotalMinutes())
	require.Equal(t, 1410, l.RemainingMinutes())
}

func TestReadThenGymScenario(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	ctx := context.Background()

	_, err := l.Add(ctx, core.ActivityInput{Name: "Read", Minutes: 60})
	require.NoError(t, err)

	_, err = l.Add(ctx, core.ActivityInput{Name: "Gym", Minutes: 1400})
	require.ErrorIs(t, err, core.ErrBudgetExceeded)

	require.Len(t, l.Activities(), 1)
	require.Equal(t, 60, l.TotalMinutes())
	require.Equal(t, 1380, l.RemainingMinutes())
}

func TestAddFillsDayExactly(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	ctx := context.Background()
	_, err := l.Add(ctx, core.ActivityInput{Name: "Sleep", Minutes: 480})
	require.NoError(t, err)
	_, err = l.Add(ctx, core.ActivityInput{Name: "Rest", Minutes: 960})
	require.NoError(t, err)
	require.Equal(t, 0, l.RemainingMinutes())
	require.True(t, l.IsAnalysable())

	_, err = l.Add(ctx, core.ActivityInput{Name: "One more", Minutes: 1})
	require.ErrorIs(t, err, core.ErrBudgetExceeded)
}

func TestEditExcludesOwnMinutes(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	ctx := context.Background()
	a, err := l.Add(ctx, core.ActivityInput{Name: "Work", Minutes: 1000})
	require.NoError(t, err)
	_, err = l.Add(ctx, core.ActivityInput{Name: "Sleep", Minutes: 400})
	require.NoError(t, err)

	// 1440 - 1000 + 1040 = 1440: allowed.
	got, err := l.Edit(ctx, a.ID, core.ActivityInput{Name: "Work", Category: "Job", Minutes: 1040})
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.True(t, a.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, 1440, l.TotalMinutes())

	_, err = l.Edit(ctx, a.ID, core.ActivityInput{Name: "Work", Minutes: 1041})
	require.ErrorIs(t, err, core.ErrBudgetExceeded)
	require.Equal(t, 1440, l.TotalMinutes())
	require.Equal(t, "Job", l.Activities()[0].Category)
}

func TestEditUnknownIDIsNotFound(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	ctx := context.Background()
	_, err := l.Add(ctx, core.ActivityInput{Name: "Read", Minutes: 10})
	require.NoError(t, err)
	before := l.Activities()

	_, err = l.Edit(ctx, "nope", core.ActivityInput{Name: "X", Minutes: 5})
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Equal(t, before, l.Activities())
	require.Equal(t, 10, l.TotalMinutes())
}

func TestEditValidationRunsBeforeLookup(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	_, err := l.Edit(context.Background(), "nope", core.ActivityInput{Name: "", Minutes: 5})
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRemove(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	ctx := context.Background()
	a, _ := l.Add(ctx, core.ActivityInput{Name: "Read", Minutes: 10})
	b, _ := l.Add(ctx, core.ActivityInput{Name: "Gym", Minutes: 20})

	require.NoError(t, l.Remove(ctx, a.ID))
	require.Len(t, l.Activities(), 1)
	require.Equal(t, b.ID, l.Activities()[0].ID)
	require.Equal(t, 20, l.TotalMinutes())

	require.ErrorIs(t, l.Remove(ctx, a.ID), core.ErrNotFound)
}

func TestAddThenLoadRoundTrip(t *testing.T) {
	st := &flakyStore{Store: newClockStore()}
	l := openLedger(t, st)
	ctx := context.Background()
	a, err := l.Add(ctx, core.ActivityInput{Name: "Read", Category: "Leisure", Minutes: 45})
	require.NoError(t, err)

	fresh := openLedger(t, st)
	items := fresh.Activities()
	require.Len(t, items, 1)
	require.Equal(t, a.ID, items[0].ID)
	require.Equal(t, "Read", items[0].Name)
	require.Equal(t, "Leisure", items[0].Category)
	require.Equal(t, 45, items[0].Minutes)
}

func TestStoreFailuresLeaveLedgerUnchanged(t *testing.T) {
	st := &flakyStore{Store: newClockStore()}
	l := openLedger(t, st)
	ctx := context.Background()
	a, err := l.Add(ctx, core.ActivityInput{Name: "Read", Minutes: 30})
	require.NoError(t, err)
	before := l.Activities()

	st.down = true
	_, err = l.Load(ctx)
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, err = l.Add(ctx, core.ActivityInput{Name: "Gym", Minutes: 30})
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, err = l.Edit(ctx, a.ID, core.ActivityInput{Name: "Read", Minutes: 60})
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	err = l.Remove(ctx, a.ID)
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	require.ErrorIs(t, err, errDown)

	require.Equal(t, before, l.Activities())
	require.Equal(t, 30, l.TotalMinutes())
}

func TestRemainingNeverNegative(t *testing.T) {
	st := &flakyStore{Store: newClockStore()}
	scope := testScope(t)
	// Historical data written around the ledger can exceed the day.
	require.NoError(t, st.ReplaceDay(context.Background(), scope, []core.Activity{
		{ID: "a", Name: "Work", Minutes: 1000},
		{ID: "b", Name: "Sleep", Minutes: 500},
	}))
	l := openLedger(t, st)
	require.Equal(t, 1500, l.TotalMinutes())
	require.Equal(t, 0, l.RemainingMinutes())
	require.False(t, l.IsAnalysable())

	_, err := l.Add(context.Background(), core.ActivityInput{Name: "x", Minutes: 1})
	require.ErrorIs(t, err, core.ErrBudgetExceeded)
}

func TestAnalysable(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	require.False(t, l.IsAnalysable())
	_, err := l.Add(context.Background(), core.ActivityInput{Name: "Read", Minutes: 1})
	require.NoError(t, err)
	require.True(t, l.IsAnalysable())
}

func TestSummaryGroupsBlankCategories(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	ctx := context.Background()
	for _, in := range []core.ActivityInput{
		{Name: "a", Category: "", Minutes: 30},
		{Name: "b", Category: "  ", Minutes: 20},
		{Name: "c", Category: "Work", Minutes: 10},
	} {
		_, err := l.Add(ctx, in)
		require.NoError(t, err)
	}
	s := l.Summary()
	require.Equal(t, map[string]int{"Uncategorized": 50, "Work": 10}, s.CategoryMap())
	require.Equal(t, "1.00", core.FormatHours(s.TotalHours))
	require.Equal(t, 3, s.ActivityCount)
}

func TestActivitiesReturnsCopy(t *testing.T) {
	l := openLedger(t, &flakyStore{Store: newClockStore()})
	_, err := l.Add(context.Background(), core.ActivityInput{Name: "Read", Minutes: 10})
	require.NoError(t, err)
	items := l.Activities()
	items[0].Minutes = 999
	require.Equal(t, 10, l.Activities()[0].Minutes)
}
