package domain

import "time"

// FeedbackStatus tracks moderation state of a rating.
type FeedbackStatus string

const (
	FeedbackStatusActive FeedbackStatus = "ACTIVE"
	FeedbackStatusHidden FeedbackStatus = "HIDDEN"
)

// Feedback is an employee's rating of a technician for one resolved ticket.
// Rating is bounded 1..5; one entry per ticket.
type Feedback struct {
	ID              string
	TicketID        string
	TechnicianEmail string
	Rating          int
	Comment         string
	Status          FeedbackStatus
	CreatedAt       time.Time
}
