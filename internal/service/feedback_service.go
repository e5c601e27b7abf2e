package service

import (
	"context"

	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/repository"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// FeedbackServiceDeps bundles the feedback service dependencies.
type FeedbackServiceDeps struct {
	Tickets  repository.TicketRepository
	Feedback repository.FeedbackRepository
}

// FeedbackService records employee ratings of technicians, one per resolved
// ticket.
type FeedbackService struct {
	tickets  repository.TicketRepository
	feedback repository.FeedbackRepository
}

// NewFeedbackService wires a feedback service.
func NewFeedbackService(deps FeedbackServiceDeps) *FeedbackService {
	return &FeedbackService{tickets: deps.Tickets, feedback: deps.Feedback}
}

// Submit records a rating. Only the employee who filed the ticket may rate,
// only once the ticket is resolved, and at most once per ticket.
func (s *FeedbackService) Submit(ctx context.Context, sess *auth.Session, ticketID string, rating int, comment string) (*domain.Feedback, error) {
	if sess.Role != domain.RoleEmployee {
		return nil, apperrors.NewUnauthorized("only employees may submit feedback")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5",
			map[string]any{"rating": rating})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.EmployeeEmail != sess.Email {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewConflict("feedback requires a resolved ticket",
			map[string]any{"status": string(ticket.Status)})
	}
	if ticket.TechnicianEmail == nil {
		return nil, apperrors.NewConflict("ticket has no technician to rate", nil)
	}

	fb := &domain.Feedback{
		TicketID:        ticketID,
		TechnicianEmail: *ticket.TechnicianEmail,
		Rating:          rating,
		Comment:         comment,
		Status:          domain.FeedbackStatusActive,
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

// ForTicket returns the rating of one ticket, visible to its participants
// and administrators.
func (s *FeedbackService) ForTicket(ctx context.Context, sess *auth.Session, ticketID string) (*domain.Feedback, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := scopeTicket(sess, ticket); err != nil {
		return nil, err
	}
	return s.feedback.GetByTicket(ctx, ticketID)
}

// ForTechnician lists a technician's received ratings. Technicians see their
// own; administrators see anyone's.
func (s *FeedbackService) ForTechnician(ctx context.Context, sess *auth.Session, technicianEmail string) ([]domain.Feedback, error) {
	switch sess.Role {
	case domain.RoleAdministrator:
	case domain.RoleTechnician:
		if sess.Email != technicianEmail {
			return nil, apperrors.NewUnauthorized("technicians may only view their own feedback")
		}
	default:
		return nil, apperrors.NewUnauthorized("role may not view technician feedback")
	}
	return s.feedback.ListByTechnician(ctx, technicianEmail)
}
