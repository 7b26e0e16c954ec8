package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/observability"
	"timetracker/internal/store"
)

// Ledger holds the activities of one user on one day and enforces the daily
// budget before anything reaches the store. A Ledger is built per request and
// is not safe for concurrent use.
type Ledger struct {
	store  store.ActivityStore
	scope  core.Scope
	items  []core.Activity
	total  int
	logger *log.Logger
	events *log.StructuredLogger
}

type LedgerOption func(*Ledger)

func WithLogger(l *log.Logger) LedgerOption {
	return func(lg *Ledger) {
		if l != nil {
			lg.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// NewLedger returns an empty ledger for scope. Call Load to fetch the day.
func NewLedger(st store.ActivityStore, scope core.Scope, opts ...LedgerOption) (*Ledger, error) {
	if st == nil {
		return nil, errors.New("ledger: nil store")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	l := &Ledger{store: st, scope: scope, logger: log.NewDiscard()}
	for _, opt := range opts {
		opt(l)
	}
	l.events = log.NewStructuredLogger(l.logger)
	return l, nil
}

// OpenLedger builds a ledger and loads it in one step.
func OpenLedger(ctx context.Context, st store.ActivityStore, scope core.Scope, opts ...LedgerOption) (*Ledger, error) {
	l, err := NewLedger(st, scope, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Scope() core.Scope { return l.scope }

// Activities returns a copy of the current snapshot in display order.
func (l *Ledger) Activities() []core.Activity {
	return append([]core.Activity(nil), l.items...)
}

func (l *Ledger) TotalMinutes() int { return l.total }

// RemainingMinutes is the unused part of the day, never negative.
func (l *Ledger) RemainingMinutes() int {
	return core.RemainingMinutes(l.total)
}

// IsAnalysable reports whether the day has something to analyse within budget.
func (l *Ledger) IsAnalysable() bool {
	return core.IsAnalysable(l.total)
}

// Summary aggregates the loaded snapshot without touching the store.
func (l *Ledger) Summary() core.DaySummary {
	return core.Summarize(l.scope.Date, l.items)
}

// Load replaces the snapshot with the store's view of the day. On failure the
// previous snapshot is kept.
func (l *Ledger) Load(ctx context.Context) (_ []core.Activity, err error) {
	defer observe(log.OpLoad, time.Now(), &err)

	items, err := l.store.ListActivities(ctx, l.scope)
	if err != nil {
		err = l.storeError(ctx, log.OpLoad, err)
		return nil, err
	}
	core.SortActivities(items)
	l.items = items
	l.total = core.TotalMinutes(items)
	l.logger.DebugContext(ctx, "Day loaded",
		log.FieldUserID, l.scope.UserID,
		log.FieldDate, l.scope.Date.String(),
		log.FieldCount, len(items),
		log.FieldTotal, l.total)
	return l.Activities(), nil
}

// Add validates in, checks the budget, persists it and appends the stored
// activity to the snapshot.
func (l *Ledger) Add(ctx context.Context, in core.ActivityInput) (_ core.Activity, err error) {
	defer observe(log.OpAdd, time.Now(), &err)

	in = in.Normalize()
	if err = in.Validate(); err != nil {
		return core.Activity{}, err
	}
	if next := l.total + in.Minutes; next > core.DayBudgetMinutes {
		err = budgetError(next)
		return core.Activity{}, err
	}

	a, err := l.store.CreateActivity(ctx, l.scope, in)
	if err != nil {
		err = l.storeError(ctx, log.OpAdd, err)
		return core.Activity{}, err
	}
	l.items = append(l.items, a)
	core.SortActivities(l.items)
	l.total = core.TotalMinutes(l.items)
	l.events.LogActivityChanged(ctx, log.OpAdd, l.scope.UserID, l.scope.Date.String(), a.ID, a.Name, a.Category, a.Minutes, l.total)
	return a, nil
}

// Edit replaces name, category and minutes of an existing activity. The
// activity's own previous minutes do not count against the budget.
func (l *Ledger) Edit(ctx context.Context, id string, in core.ActivityInput) (_ core.Activity, err error) {
	defer observe(log.OpEdit, time.Now(), &err)

	in = in.Normalize()
	if err = in.Validate(); err != nil {
		return core.Activity{}, err
	}
	i := l.indexOf(id)
	if i < 0 {
		err = fmt.Errorf("%w: %s", core.ErrNotFound, id)
		return core.Activity{}, err
	}
	old := l.items[i]
	if next := l.total - core.TotalMinutes([]core.Activity{old}) + in.Minutes; next > core.DayBudgetMinutes {
		err = budgetError(next)
		return core.Activity{}, err
	}

	if err = l.store.UpdateActivity(ctx, l.scope, id, in); err != nil {
		err = l.storeError(ctx, log.OpEdit, err)
		return core.Activity{}, err
	}
	updated := old
	updated.Name = in.Name
	updated.Category = in.Category
	updated.Minutes = in.Minutes
	l.items[i] = updated
	l.total = core.TotalMinutes(l.items)
	l.events.LogActivityChanged(ctx, log.OpEdit, l.scope.UserID, l.scope.Date.String(), id, updated.Name, updated.Category, updated.Minutes, l.total)
	return updated, nil
}

// Remove deletes an activity from the store and then from the snapshot.
func (l *Ledger) Remove(ctx context.Context, id string) (err error) {
	defer observe(log.OpRemove, time.Now(), &err)

	i := l.indexOf(id)
	if i < 0 {
		err = fmt.Errorf("%w: %s", core.ErrNotFound, id)
		return err
	}
	if err = l.store.DeleteActivity(ctx, l.scope, id); err != nil {
		err = l.storeError(ctx, log.OpRemove, err)
		return err
	}
	removed := l.items[i]
	l.items = append(l.items[:i:i], l.items[i+1:]...)
	l.total = core.TotalMinutes(l.items)
	l.events.LogActivityChanged(ctx, log.OpRemove, l.scope.UserID, l.scope.Date.String(), id, removed.Name, removed.Category, removed.Minutes, l.total)
	return nil
}

func (l *Ledger) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// storeError keeps NotFound and reports everything else as StoreUnavailable.
func (l *Ledger) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	l.events.LogError(ctx, "Store call failed", err, op,
		log.NewFields().WithScope(l.scope.UserID, l.scope.Date.String()))
	if errors.Is(err, core.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
}

func observe(op string, start time.Time, err *error) {
	observability.ObserveLedgerOp(op, start, *err)
}

func budgetError(total int) error {
	return fmt.Errorf("%w: %d minutes would exceed the %d minute day by %d",
		core.ErrBudgetExceeded, total, core.DayBudgetMinutes, total-core.DayBudgetMinutes)
}
