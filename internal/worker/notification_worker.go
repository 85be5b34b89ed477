package worker

import (
	"go.uber.org/zap"
)

// EventSubscriber attaches handlers to the event dispatcher and reports how
// many event types it now listens to.
type EventSubscriber interface {
	RegisterHandlers() int
}

// StartNotificationWorker wires the notification handlers into the
// dispatcher. Handlers run inside Publish.
func StartNotificationWorker(subscriber EventSubscriber, logger *zap.Logger) {
	if subscriber == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := subscriber.RegisterHandlers()
	logger.Info("notification handlers registered", zap.Int("event_types", n))
}
