package store

import (
	"context"

	"timetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// ActivityStore is the remote document store keyed user -> day -> activities.
	// Implementations assign ID and CreatedAt on create and report a missing
	// activity as core.ErrNotFound.
	ActivityStore interface {
		ListActivities(ctx context.Context, scope core.Scope) ([]core.Activity, error)
		CreateActivity(ctx context.Context, scope core.Scope, in core.ActivityInput) (core.Activity, error)
		UpdateActivity(ctx context.Context, scope core.Scope, id string, in core.ActivityInput) error
		DeleteActivity(ctx context.Context, scope core.Scope, id string) error
	}

	// DayMirror receives a full copy of a day, replacing what it held before.
	DayMirror interface {
		ReplaceDay(ctx context.Context, scope core.Scope, items []core.Activity) error
	}

	// HealthChecker is implemented by stores that can report readiness.
	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)
