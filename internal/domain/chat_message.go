package domain

import "time"

// ChatMessage is an append-only entry in a ticket's conversation thread.
// Messages may only be created while the ticket is open with a technician
// assigned.
type ChatMessage struct {
	ID          string
	TicketID    string
	SenderEmail string
	SenderName  string
	Body        string
	CreatedAt   time.Time
}
