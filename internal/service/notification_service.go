package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/agency-dashboard/internal/events"
)

// NotificationService reports every domain event to operators and forwards
// it to the broker when one is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	forwarder  events.Forwarder
	logger     *zap.Logger
}

// NewNotificationService creates the service. forwarder may be nil.
func NewNotificationService(dispatcher events.Dispatcher, forwarder events.Forwarder, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		forwarder:  forwarder,
		logger:     nopIfNil(logger),
	}
}

// RegisterHandlers subscribes to every event type and returns how many.
func (n *NotificationService) RegisterHandlers() int {
	if n.dispatcher == nil {
		return 0
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
	return len(events.AllEventTypes)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("subject_id", event.SubjectID),
		zap.String("actor", event.Actor.EmployeeID),
		zap.Any("payload", event.Payload),
	)
	if n.forwarder == nil {
		return nil
	}
	if err := n.forwarder.Forward(ctx, event); err != nil {
		n.logger.Warn("forward event failed", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}
