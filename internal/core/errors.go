package core

import (
	"context"
	"errors"
)

var (
	// ErrInvalidInput reports a blank name, non-positive minutes or a malformed scope.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBudgetExceeded reports an add or edit that would push the day past 1440 minutes.
	ErrBudgetExceeded = errors.New("daily budget exceeded")
	// ErrNotFound reports an activity id that is not in the day.
	ErrNotFound = errors.New("activity not found")
	// ErrStoreUnavailable reports a store failure (network, permission, timeout).
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Stable error kinds, used in JSON responses and metric labels.
const (
	KindInvalidInput     = "invalid_input"
	KindBudgetExceeded   = "budget_exceeded"
	KindNotFound         = "not_found"
	KindStoreUnavailable = "store_unavailable"
	KindInternal         = "internal"
)

// ErrorKind maps an error to one of the Kind constants. A nil error maps to "".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBudgetExceeded):
		return KindBudgetExceeded
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}
