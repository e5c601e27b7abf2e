package dto

import (
	"time"

	"github.com/equipdesk/equipdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ProblemType string `json:"problem_type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	EquipmentID string `json:"equipment_id"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TechnicianEmail string                `json:"technician_email"`
	Priority        domain.TicketPriority `json:"priority"`
}

// TicketResponse is the wire shape of one ticket.
type TicketResponse struct {
	ID              string                 `json:"id"`
	TicketNumber    int64                  `json:"ticket_number"`
	Status          domain.TicketStatus    `json:"status"`
	Priority        *domain.TicketPriority `json:"priority"`
	ProblemType     string                 `json:"problem_type"`
	Description     string                 `json:"description"`
	Location        string                 `json:"location"`
	EquipmentID     string                 `json:"equipment_id"`
	EmployeeEmail   string                 `json:"employee_email"`
	EmployeeName    string                 `json:"employee_name"`
	TechnicianEmail *string                `json:"technician_email"`
	TechnicianName  *string                `json:"technician_name"`
	ChatOpen        bool                   `json:"chat_open"`
	CreatedAt       time.Time              `json:"created_at"`
	AssignedAt      *time.Time             `json:"assigned_at"`
	FinishedAt      *time.Time             `json:"finished_at"`
}

// FromTicket maps the domain ticket onto the wire shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		TicketNumber:    t.TicketNumber,
		Status:          t.Status,
		Priority:        t.Priority,
		ProblemType:     t.ProblemType,
		Description:     t.Description,
		Location:        t.Location,
		EquipmentID:     t.EquipmentID,
		EmployeeEmail:   t.EmployeeEmail,
		EmployeeName:    t.EmployeeName,
		TechnicianEmail: t.TechnicianEmail,
		TechnicianName:  t.TechnicianName,
		ChatOpen:        t.ChatOpen(),
		CreatedAt:       t.CreatedAt,
		AssignedAt:      t.AssignedAt,
		FinishedAt:      t.FinishedAt,
	}
}

// FromTickets maps a slice of tickets.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, FromTicket(&tickets[i]))
	}
	return result
}
