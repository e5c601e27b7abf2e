package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/chat"
	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/events"
	"github.com/equipdesk/equipdesk/internal/repository"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// ChatServiceDeps bundles the chat service dependencies.
type ChatServiceDeps struct {
	Tickets    repository.TicketRepository
	Messages   repository.ChatRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// ChatService posts and lists the per-ticket conversation thread. Chat is
// open only while the ticket is open with a technician assigned.
type ChatService struct {
	tickets    repository.TicketRepository
	messages   repository.ChatRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewChatService wires a chat service.
func NewChatService(deps ChatServiceDeps) *ChatService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ChatService{
		tickets:    deps.Tickets,
		messages:   deps.Messages,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        now,
	}
}

// Post appends a message. Openness is re-checked at submission time: once
// against the loaded ticket, then again inside the store's conditional
// insert, so a message racing a concurrent Resolve is rejected rather than
// silently appended.
func (s *ChatService) Post(ctx context.Context, sess *auth.Session, ticketID, body string) (*domain.ChatMessage, error) {
	if err := auth.Require(sess.Role, auth.ActionChatSend); err != nil {
		return nil, err
	}
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required",
			map[string]any{"body": "required"})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := scopeChat(sess, ticket); err != nil {
		return nil, err
	}
	if !chat.IsOpen(ticket) {
		return nil, apperrors.NewChatClosed(ticketID)
	}

	msg := &domain.ChatMessage{
		TicketID:    ticketID,
		SenderEmail: sess.Email,
		SenderName:  sess.Name,
		Body:        body,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}

	event := events.Event{
		ID:           uuid.NewString(),
		Type:         events.EventChatMessageAdded,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Actor:        events.Actor{Role: sess.Role, Email: sess.Email},
		Timestamp:    s.now(),
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("event publish failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return msg, nil
}

// List returns the full thread, oldest first. Reading stays available after
// chat closes; only posting is cut off.
func (s *ChatService) List(ctx context.Context, sess *auth.Session, ticketID string) ([]domain.ChatMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := scopeChat(sess, ticket); err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

// scopeChat limits the thread to its participants plus administrators.
func scopeChat(sess *auth.Session, ticket *domain.Ticket) error {
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
