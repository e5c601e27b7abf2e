package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/events"
)

// NotificationService turns committed ticket events into operator-visible
// log lines. A real delivery channel (mail, chat webhook) would hang off the
// same subscriptions.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService wires a notification service.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	return &NotificationService{logger: logger}
}

// Register subscribes the service to every ticket event.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	for _, eventType := range events.TicketEvents() {
		dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *NotificationService) handle(ctx context.Context, event events.Event) error {
	s.logger.Info("ticket event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int64("ticket_number", event.TicketNumber),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.String("actor_email", event.Actor.Email),
	)
	return nil
}
