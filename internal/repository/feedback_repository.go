package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// FeedbackRepository stores technician ratings, one per resolved ticket.
type FeedbackRepository interface {
	Create(ctx context.Context, fb *domain.Feedback) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error)
	ListByTechnician(ctx context.Context, technicianEmail string) ([]domain.Feedback, error)
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository instantiates the repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

func (r *feedbackRepository) Create(ctx context.Context, fb *domain.Feedback) error {
	const query = `
        INSERT INTO feedback (ticket_id, technician_email, rating, comment, status)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (ticket_id) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		fb.TicketID, fb.TechnicianEmail, fb.Rating, fb.Comment, fb.Status,
	).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewConflict("feedback already submitted for ticket",
				map[string]any{"ticket_id": fb.TicketID})
		}
		return apperrors.NewStorageUnavailable(err)
	}
	return nil
}

func (r *feedbackRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := r.pool.QueryRow(ctx,
		`SELECT id, ticket_id, technician_email, rating, comment, status, created_at
         FROM feedback WHERE ticket_id=$1`, ticketID,
	).Scan(&fb.ID, &fb.TicketID, &fb.TechnicianEmail, &fb.Rating, &fb.Comment, &fb.Status, &fb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("feedback", nil)
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return &fb, nil
}

func (r *feedbackRepository) ListByTechnician(ctx context.Context, technicianEmail string) ([]domain.Feedback, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ticket_id, technician_email, rating, comment, status, created_at
         FROM feedback WHERE technician_email=$1 ORDER BY created_at DESC`, technicianEmail)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	var result []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.ID, &fb.TicketID, &fb.TechnicianEmail, &fb.Rating, &fb.Comment, &fb.Status, &fb.CreatedAt); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		result = append(result, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return result, nil
}
