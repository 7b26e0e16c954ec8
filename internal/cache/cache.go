package cache

import (
	"context"
	"time"

	"timetracker/internal/log"
)

// Cache is a keyed store with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries in bulk.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	caches []Cleaner
	logger *log.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.NewDiscard()
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Start sweeps every interval until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.run(ctx, interval)
}

func (m *Manager) run(ctx context.Context, interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep cleans every registered cache once and returns the number of entries removed.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the sweeper and waits for it to exit.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}
