// Package service implements the application use cases on top of the
// repositories, the lifecycle state machine, and the role gate. Services
// receive the acting session explicitly; nothing here reads ambient identity.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/events"
	"github.com/equipdesk/equipdesk/internal/lifecycle"
	"github.com/equipdesk/equipdesk/internal/repository"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// TicketServiceDeps bundles the ticket service dependencies.
type TicketServiceDeps struct {
	Tickets     repository.TicketRepository
	Technicians repository.ProfileRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// TicketService executes the role-gated ticket commands and the scoped reads.
type TicketService struct {
	tickets     repository.TicketRepository
	technicians repository.ProfileRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// NewTicketService wires a ticket service.
func NewTicketService(deps TicketServiceDeps) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:     deps.Tickets,
		technicians: deps.Technicians,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		now:         now,
	}
}

// CreateTicketInput carries the employee-provided fields of a new ticket.
type CreateTicketInput struct {
	ProblemType string
	Description string
	Location    string
	EquipmentID string
}

// Create files a new ticket for the acting employee. The ticket number comes
// from the shared counter, so concurrent creates never collide.
func (s *TicketService) Create(ctx context.Context, sess *auth.Session, input CreateTicketInput) (*domain.Ticket, error) {
	if err := auth.Require(sess.Role, auth.ActionCreate); err != nil {
		return nil, err
	}
	details := map[string]any{}
	if input.ProblemType == "" {
		details["problem_type"] = "required"
	}
	if input.Description == "" {
		details["description"] = "required"
	}
	if input.Location == "" {
		details["location"] = "required"
	}
	if input.EquipmentID == "" {
		details["equipment_id"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", details)
	}

	decision, err := lifecycle.Decide("", false, lifecycle.CommandCreate, sess.Role)
	if err != nil {
		return nil, err
	}

	number, err := s.tickets.NextTicketNumber(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		TicketNumber:  number,
		ProblemType:   input.ProblemType,
		Description:   input.Description,
		Location:      input.Location,
		EquipmentID:   input.EquipmentID,
		EmployeeEmail: sess.Email,
		EmployeeName:  sess.Name,
	}
	decision.Apply(ticket, nil, s.now())

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventTicketCreated, ticket, sess)
	return ticket, nil
}

// Assign hands the ticket to a technician and sets its priority. The commit
// re-checks inside the store that the ticket is still open and unassigned, so
// of two racing administrators exactly one wins.
func (s *TicketService) Assign(ctx context.Context, sess *auth.Session, ticketID, technicianEmail string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if err := auth.Require(sess.Role, auth.ActionAssign); err != nil {
		return nil, err
	}
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh:
	default:
		return nil, apperrors.NewValidationError("invalid priority",
			map[string]any{"priority": string(priority)})
	}

	technician, err := s.technicians.GetByEmail(ctx, technicianEmail)
	if err != nil {
		return nil, err
	}
	assignment := &lifecycle.Assignment{
		TechnicianEmail: technician.Email,
		TechnicianName:  technician.FullName(),
		Priority:        priority,
	}

	return s.execute(ctx, sess, ticketID, lifecycle.CommandAssign, assignment, events.EventTicketAssigned)
}

// Deny rejects an open ticket.
func (s *TicketService) Deny(ctx context.Context, sess *auth.Session, ticketID string) (*domain.Ticket, error) {
	if err := auth.Require(sess.Role, auth.ActionDeny); err != nil {
		return nil, err
	}
	return s.execute(ctx, sess, ticketID, lifecycle.CommandDeny, nil, events.EventTicketDenied)
}

// Reactivate reopens a denied ticket. It comes back unassigned.
func (s *TicketService) Reactivate(ctx context.Context, sess *auth.Session, ticketID string) (*domain.Ticket, error) {
	if err := auth.Require(sess.Role, auth.ActionReactivate); err != nil {
		return nil, err
	}
	return s.execute(ctx, sess, ticketID, lifecycle.CommandReactivate, nil, events.EventTicketReactivated)
}

// Resolve closes out the ticket's work. Only the assigned technician may
// resolve, not any technician.
func (s *TicketService) Resolve(ctx context.Context, sess *auth.Session, ticketID string) (*domain.Ticket, error) {
	if err := auth.Require(sess.Role, auth.ActionResolve); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.TechnicianEmail == nil || *ticket.TechnicianEmail != sess.Email {
		return nil, apperrors.NewUnauthorized("ticket is not assigned to this technician")
	}
	return s.execute(ctx, sess, ticketID, lifecycle.CommandResolve, nil, events.EventTicketResolved)
}

// execute runs one lifecycle command: load, decide, apply, conditional
// commit. A commit that loses a race is retried once against fresh state; if
// the command is no longer legal afterwards the concurrency error surfaces.
func (s *TicketService) execute(ctx context.Context, sess *auth.Session, ticketID string, cmd lifecycle.Command, asg *lifecycle.Assignment, eventType events.EventType) (*domain.Ticket, error) {
	var raceErr error
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, err
		}

		decision, err := lifecycle.Decide(ticket.Status, ticket.Assigned(), cmd, sess.Role)
		if err != nil {
			if raceErr != nil {
				return nil, raceErr
			}
			return nil, err
		}
		decision.Apply(ticket, asg, s.now())

		expect := repository.Precondition{Status: decision.From, Unassigned: decision.ExpectUnassigned}
		err = s.tickets.UpdateConditional(ctx, ticket, expect)
		if err == nil {
			s.publish(ctx, eventType, ticket, sess)
			return ticket, nil
		}
		if !apperrors.IsCode(err, "CONCURRENT_MODIFICATION") {
			return nil, err
		}
		raceErr = err
	}
	return nil, raceErr
}

// Get returns one ticket, scoped to the session: employees see their own,
// technicians their assigned, administrators everything.
func (s *TicketService) Get(ctx context.Context, sess *auth.Session, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := scopeTicket(sess, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetByNumber resolves the human-facing ticket number, with the same scope
// rules as Get.
func (s *TicketService) GetByNumber(ctx context.Context, sess *auth.Session, number int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := scopeTicket(sess, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// List returns tickets visible to the session. Employee and technician scopes
// are forced onto the filter regardless of what the caller passed.
func (s *TicketService) List(ctx context.Context, sess *auth.Session, filter repository.TicketFilter) ([]domain.Ticket, error) {
	switch sess.Role {
	case domain.RoleEmployee:
		email := sess.Email
		filter.EmployeeEmail = &email
		filter.TechnicianEmail = nil
	case domain.RoleTechnician:
		email := sess.Email
		filter.TechnicianEmail = &email
		filter.EmployeeEmail = nil
	case domain.RoleAdministrator:
		if err := auth.Require(sess.Role, auth.ActionReadAll); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewUnauthorized("unknown role")
	}
	return s.tickets.List(ctx, filter)
}

// scopeTicket enforces per-record visibility on top of the role matrix.
func scopeTicket(sess *auth.Session, ticket *domain.Ticket) error {
	switch sess.Role {
	case domain.RoleAdministrator:
		return nil
	case domain.RoleEmployee:
		if ticket.EmployeeEmail == sess.Email {
			return nil
		}
	case domain.RoleTechnician:
		if ticket.TechnicianEmail != nil && *ticket.TechnicianEmail == sess.Email {
			return nil
		}
	}
	return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, sess *auth.Session) {
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Actor:        events.Actor{Role: sess.Role, Email: sess.Email},
		Timestamp:    s.now(),
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}
