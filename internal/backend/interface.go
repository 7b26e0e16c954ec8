package backend

import (
	"context"

	"timetracker/internal/cache"
	"timetracker/internal/store"
)

// Backend is what the HTTP server and the CLI need from a data backend.
type Backend interface {
	store.ActivityStore
	store.HealthChecker
}

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// Caches lists the caches the backend created, for periodic sweeping.
	Caches []cache.Cleaner
}

// Close runs Cleanup when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	SheetsBackend   BackendType = "sheets"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Durable reports whether the backend survives a restart and can feed the
// sheet mirror.
func (bt BackendType) Durable() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}
