package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusDenied   TicketStatus = "DENIED"
	TicketStatusResolved TicketStatus = "RESOLVED"
	// TicketStatusClosed is recognized on read and filter paths but no
	// command produces it; it is only ever set manually in the backend.
	TicketStatusClosed TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency, set at assignment time.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is the aggregate for equipment support requests.
type Ticket struct {
	ID              string
	TicketNumber    int64
	Status          TicketStatus
	Priority        *TicketPriority
	ProblemType     string
	Description     string
	Location        string
	EquipmentID     string
	EmployeeEmail   string
	EmployeeName    string
	TechnicianEmail *string
	TechnicianName  *string
	CreatedAt       time.Time
	AssignedAt      *time.Time
	FinishedAt      *time.Time
}

// Assigned reports whether a technician is currently assigned.
func (t *Ticket) Assigned() bool {
	return t.TechnicianEmail != nil && *t.TechnicianEmail != ""
}

// ChatOpen reports whether the ticket accepts chat messages: open status with
// a technician assigned.
func (t *Ticket) ChatOpen() bool {
	return t.Status == TicketStatusOpen && t.Assigned()
}
