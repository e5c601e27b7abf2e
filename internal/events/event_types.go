package events

import (
	"time"

	"github.com/equipdesk/equipdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketDenied      EventType = "ticket_denied"
	EventTicketReactivated EventType = "ticket_reactivated"
	EventTicketResolved    EventType = "ticket_resolved"
	EventChatMessageAdded  EventType = "chat_message_added"
)

// Actor encapsulates who issued the command behind an event.
type Actor struct {
	Role  domain.Role `json:"role"`
	Email string      `json:"email"`
}

// Event is a committed change emitted by the ticket store. Subscription
// channels react to these by refetching their full result set.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	TicketID     string    `json:"ticket_id"`
	TicketNumber int64     `json:"ticket_number"`
	Actor        Actor     `json:"actor"`
	Timestamp    time.Time `json:"timestamp"`
}

// TicketEvents lists every event type that mutates a ticket record.
func TicketEvents() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketAssigned,
		EventTicketDenied,
		EventTicketReactivated,
		EventTicketResolved,
		EventChatMessageAdded,
	}
}
