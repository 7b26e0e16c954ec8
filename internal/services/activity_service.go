package services

import (
	"context"
	"errors"
	"fmt"

	"timetracker/internal/amqp"
	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/observability"
	"timetracker/internal/store"
)

// ChangePublisher announces that a day changed.
type ChangePublisher interface {
	PublishActivityChange(ctx context.Context, msg *amqp.ActivityChangeMessage) error
}

// ActivityService decorates a store: writes go to the store first and a change
// event is published afterwards. A failed publish is logged and never fails
// the write.
type ActivityService struct {
	store     store.ActivityStore
	publisher ChangePublisher
	logger    *log.Logger
}

var _ store.ActivityStore = (*ActivityService)(nil)

func NewActivityService(st store.ActivityStore, publisher ChangePublisher, logger *log.Logger) *ActivityService {
	if logger == nil {
		logger = log.NewDiscard()
	}
	return &ActivityService{store: st, publisher: publisher, logger: logger.WithComponent(log.ComponentBackend)}
}

func (s *ActivityService) ListActivities(ctx context.Context, scope core.Scope) ([]core.Activity, error) {
	return s.store.ListActivities(ctx, scope)
}

func (s *ActivityService) CreateActivity(ctx context.Context, scope core.Scope, in core.ActivityInput) (core.Activity, error) {
	a, err := s.store.CreateActivity(ctx, scope, in)
	if err != nil {
		return core.Activity{}, err
	}
	s.publish(ctx, amqp.OpActivityCreated, scope, a.ID)
	return a, nil
}

func (s *ActivityService) UpdateActivity(ctx context.Context, scope core.Scope, id string, in core.ActivityInput) error {
	if err := s.store.UpdateActivity(ctx, scope, id, in); err != nil {
		return err
	}
	s.publish(ctx, amqp.OpActivityUpdated, scope, id)
	return nil
}

func (s *ActivityService) DeleteActivity(ctx context.Context, scope core.Scope, id string) error {
	if err := s.store.DeleteActivity(ctx, scope, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.OpActivityDeleted, scope, id)
	return nil
}

func (s *ActivityService) publish(ctx context.Context, op string, scope core.Scope, id string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewActivityChangeMessage(op, scope.UserID, scope.Date.String(), id)
	if err := s.publisher.PublishActivityChange(context.WithoutCancel(ctx), msg); err != nil {
		observability.RecordPublishFailure()
		s.logger.WarnContext(ctx, "Failed to publish activity change",
			log.FieldOperation, op,
			log.FieldUserID, scope.UserID,
			log.FieldDate, scope.Date.String(),
			log.FieldActivityID, id,
			log.FieldError, err)
	}
}

func (s *ActivityService) Ping(ctx context.Context) error {
	if hc, ok := s.store.(store.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Close releases the store and the publisher when they hold resources.
func (s *ActivityService) Close() error {
	var errs []error
	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
