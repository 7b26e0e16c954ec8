package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"timetracker/internal/amqp"
	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/observability"
	"timetracker/internal/store"
)

// MirrorWorker copies whole days from the authoritative store into the mirror
// whenever a change event names them. Days whose mirror write failed are kept
// as pending and retried by ProcessPending.
type MirrorWorker struct {
	source    store.ActivityStore
	mirror    store.DayMirror
	logger    *log.Logger
	batchSize int
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]core.Scope
}

func NewMirrorWorker(source store.ActivityStore, mirror store.DayMirror, batchSize int, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.NewDiscard()
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &MirrorWorker{
		source:    source,
		mirror:    mirror,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
		now:       time.Now,
		pending:   make(map[string]core.Scope),
	}
}

// HandleChange is the amqp.Handler for change events. Messages naming an
// impossible scope are dropped. A failed mirror is parked as pending and the
// message is still acknowledged.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ActivityChangeMessage) error {
	scope, err := core.NewScope(msg.UserID, msg.Date)
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping change event with invalid scope",
			log.FieldUserID, msg.UserID,
			log.FieldDate, msg.Date,
			log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing change event",
		log.FieldOperation, msg.Op,
		log.FieldUserID, scope.UserID,
		log.FieldDate, scope.Date.String(),
		log.FieldActivityID, msg.ActivityID)

	if err := w.MirrorDay(ctx, scope); err != nil {
		w.markPending(scope)
		w.logger.ErrorContext(ctx, "Failed to mirror day, will retry",
			log.FieldUserID, scope.UserID,
			log.FieldDate, scope.Date.String(),
			log.FieldError, err)
	}
	return nil
}

// MirrorDay replaces the mirrored copy of scope with the source's current day.
func (w *MirrorWorker) MirrorDay(ctx context.Context, scope core.Scope) (err error) {
	defer func() { observability.RecordMirror(w.now(), err) }()

	items, err := w.source.ListActivities(ctx, scope)
	if err != nil {
		return fmt.Errorf("list source day: %w", err)
	}
	if err := w.mirror.ReplaceDay(ctx, scope, items); err != nil {
		return fmt.Errorf("replace mirrored day: %w", err)
	}
	w.clearPending(scope)
	w.logger.InfoContext(ctx, "Mirrored day",
		log.FieldUserID, scope.UserID,
		log.FieldDate, scope.Date.String(),
		log.FieldCount, len(items))
	return nil
}

// ProcessPending retries up to batchSize parked days, oldest date first.
// It returns how many were mirrored.
func (w *MirrorWorker) ProcessPending(ctx context.Context) int {
	batch := w.pendingBatch()
	if len(batch) == 0 {
		return 0
	}
	w.logger.InfoContext(ctx, "Retrying pending days", log.FieldCount, len(batch))

	synced := 0
	for _, scope := range batch {
		if ctx.Err() != nil {
			break
		}
		if err := w.MirrorDay(ctx, scope); err != nil {
			w.logger.ErrorContext(ctx, "Retry failed",
				log.FieldUserID, scope.UserID,
				log.FieldDate, scope.Date.String(),
				log.FieldError, err)
			continue
		}
		synced++
	}
	return synced
}

// Run calls ProcessPending every interval until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.ProcessPending(ctx)
		}
	}
}

// Pending returns the number of parked days.
func (w *MirrorWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *MirrorWorker) markPending(scope core.Scope) {
	w.mu.Lock()
	w.pending[scope.Key()] = scope
	w.mu.Unlock()
}

func (w *MirrorWorker) clearPending(scope core.Scope) {
	w.mu.Lock()
	delete(w.pending, scope.Key())
	w.mu.Unlock()
}

func (w *MirrorWorker) pendingBatch() []core.Scope {
	w.mu.Lock()
	batch := make([]core.Scope, 0, len(w.pending))
	for _, s := range w.pending {
		batch = append(batch, s)
	}
	w.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool {
		if !batch[i].Date.Equal(batch[j].Date.Time) {
			return batch[i].Date.Before(batch[j].Date.Time)
		}
		return batch[i].UserID < batch[j].UserID
	})
	if len(batch) > w.batchSize {
		batch = batch[:w.batchSize]
	}
	return batch
}
