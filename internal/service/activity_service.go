package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/events"
)

// ActivityLogger writes lifecycle events to the structured log for operators.
// Nothing is persisted.
type ActivityLogger struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActivityLogger creates the service.
func NewActivityLogger(dispatcher events.Dispatcher, logger *zap.Logger) *ActivityLogger {
	return &ActivityLogger{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityLogger) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAccountRegistered, a.handle)
	a.dispatcher.Subscribe(events.EventRequestSubmitted, a.handle)
	a.dispatcher.Subscribe(events.EventRequestStatusChanged, a.handle)
	a.dispatcher.Subscribe(events.EventRequestDeleted, a.handle)
}

func (a *ActivityLogger) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("subject_id", event.SubjectID),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.Int64("actor_id", *event.ActorID))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	a.logger.Info("activity", fields...)
	return nil
}
