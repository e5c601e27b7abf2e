package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// ChatRepository stores a ticket's append-only conversation thread.
type ChatRepository interface {
	// Append inserts the message only if the ticket is still open with a
	// technician assigned. A message racing a concurrent Resolve fails with
	// ChatClosed, never silently succeeds.
	Append(ctx context.Context, msg *domain.ChatMessage) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error)
}

type chatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository instantiates the pgx-backed repository.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepository{pool: pool}
}

func (r *chatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	// The openness check lives inside the INSERT so the database, not the
	// client, arbitrates the race against a concurrent status change.
	const query = `
        INSERT INTO chat_messages (ticket_id, sender_email, sender_name, body)
        SELECT $1, $2, $3, $4
        WHERE EXISTS (
            SELECT 1 FROM tickets
            WHERE id = $1 AND status = $5 AND technician_email IS NOT NULL)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderEmail,
		msg.SenderName,
		msg.Body,
		domain.TicketStatusOpen,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewStorageUnavailable(err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, msg.TicketID).Scan(&exists); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	if !exists {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": msg.TicketID})
	}
	return apperrors.NewChatClosed(msg.TicketID)
}

func (r *chatRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_email, sender_name, body, created_at
        FROM chat_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.SenderEmail, &msg.SenderName, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return result, nil
}
