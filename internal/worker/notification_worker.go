package worker

import (
	"github.com/equipdesk/equipdesk/internal/events"
	"github.com/equipdesk/equipdesk/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher) {
	if notificationService == nil {
		return
	}
	notificationService.Register(dispatcher)
}
