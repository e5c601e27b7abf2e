package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// TicketFilter captures list query parameters. Each filter shape corresponds
// to one logical query key on the read path.
type TicketFilter struct {
	EmployeeEmail   *string
	TechnicianEmail *string
	EquipmentID     *string
	Location        *string
	Statuses        []domain.TicketStatus
	Limit           int
	Offset          int
}

// Precondition is the expected prior state a conditional commit re-checks
// inside the UPDATE itself, so two administrators racing on the same ticket
// cannot both win.
type Precondition struct {
	Status     domain.TicketStatus
	Unassigned bool
}

// DashboardCounts aggregates ticket outcomes for report screens.
type DashboardCounts struct {
	Total      int64                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int64   `json:"by_status"`
	ByPriority map[domain.TicketPriority]int64 `json:"by_priority"`
	ByLocation map[string]int64                `json:"by_location"`
}

// TicketRepository is the authoritative ticket record set.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateConditional(ctx context.Context, ticket *domain.Ticket, expect Precondition) error
	NextTicketNumber(ctx context.Context) (int64, error)
	AggregateCounts(ctx context.Context) (*DashboardCounts, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the pgx-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, status, priority, problem_type, description,
       location, equipment_id, employee_email, employee_name,
       technician_email, technician_name, created_at, assigned_at, finished_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, status, priority, problem_type, description,
            location, equipment_id, employee_email, employee_name,
            technician_email, technician_name, assigned_at, finished_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Status,
		ticket.Priority,
		ticket.ProblemType,
		ticket.Description,
		ticket.Location,
		ticket.EquipmentID,
		ticket.EmployeeEmail,
		ticket.EmployeeName,
		ticket.TechnicianEmail,
		ticket.TechnicianName,
		ticket.AssignedAt,
		ticket.FinishedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt)
	if err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	return nil
}

// UpdateConditional commits the ticket's mutable fields in a single UPDATE
// keyed on the expected prior status (and, when required, on the ticket being
// unassigned). Zero rows affected means the precondition no longer holds.
func (r *ticketRepository) UpdateConditional(ctx context.Context, ticket *domain.Ticket, expect Precondition) error {
	query := `
        UPDATE tickets SET status=$1, priority=$2,
            technician_email=$3, technician_name=$4,
            assigned_at=$5, finished_at=$6
        WHERE id=$7 AND status=$8`
	args := []any{
		ticket.Status,
		ticket.Priority,
		ticket.TechnicianEmail,
		ticket.TechnicianName,
		ticket.AssignedAt,
		ticket.FinishedAt,
		ticket.ID,
		expect.Status,
	}
	if expect.Unassigned {
		query += ` AND technician_email IS NULL`
	}

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a vanished ticket from a lost race.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	if !exists {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
	}
	return apperrors.NewConcurrentModification(ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Status,
		&ticket.Priority,
		&ticket.ProblemType,
		&ticket.Description,
		&ticket.Location,
		&ticket.EquipmentID,
		&ticket.EmployeeEmail,
		&ticket.EmployeeName,
		&ticket.TechnicianEmail,
		&ticket.TechnicianName,
		&ticket.CreatedAt,
		&ticket.AssignedAt,
		&ticket.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.EmployeeEmail != nil {
		args = append(args, *filter.EmployeeEmail)
		clauses = append(clauses, fmt.Sprintf("employee_email=$%d", len(args)))
	}
	if filter.TechnicianEmail != nil {
		args = append(args, *filter.TechnicianEmail)
		clauses = append(clauses, fmt.Sprintf("technician_email=$%d", len(args)))
	}
	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		clauses = append(clauses, fmt.Sprintf("equipment_id=$%d", len(args)))
	}
	if filter.Location != nil {
		args = append(args, *filter.Location)
		clauses = append(clauses, fmt.Sprintf("location=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY ticket_number DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// NextTicketNumber reserves the next human-facing ticket number via a
// single-row counter increment. The UPDATE is atomic, so concurrent creates
// are serialized by the database and never observe duplicates. Numbers are
// not guaranteed gap-free under partial failure.
func (r *ticketRepository) NextTicketNumber(ctx context.Context) (int64, error) {
	var number int64
	err := r.pool.QueryRow(ctx,
		`UPDATE ticket_counter SET count = count + 1 WHERE name = 'tickets' RETURNING count`,
	).Scan(&number)
	if err != nil {
		return 0, apperrors.NewStorageUnavailable(err)
	}
	return number, nil
}

func (r *ticketRepository) AggregateCounts(ctx context.Context) (*DashboardCounts, error) {
	counts := &DashboardCounts{
		ByStatus:   make(map[domain.TicketStatus]int64),
		ByPriority: make(map[domain.TicketPriority]int64),
		ByLocation: make(map[string]int64),
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.TicketStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		counts.ByStatus[status] = n
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	prioRows, err := r.pool.Query(ctx,
		`SELECT priority, COUNT(*) FROM tickets WHERE priority IS NOT NULL GROUP BY priority`)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer prioRows.Close()
	for prioRows.Next() {
		var priority domain.TicketPriority
		var n int64
		if err := prioRows.Scan(&priority, &n); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		counts.ByPriority[priority] = n
	}
	if err := prioRows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	locRows, err := r.pool.Query(ctx, `SELECT location, COUNT(*) FROM tickets GROUP BY location`)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer locRows.Close()
	for locRows.Next() {
		var location string
		var n int64
		if err := locRows.Scan(&location, &n); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		counts.ByLocation[location] = n
	}
	if err := locRows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	return counts, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.Status,
			&ticket.Priority,
			&ticket.ProblemType,
			&ticket.Description,
			&ticket.Location,
			&ticket.EquipmentID,
			&ticket.EmployeeEmail,
			&ticket.EmployeeName,
			&ticket.TechnicianEmail,
			&ticket.TechnicianName,
			&ticket.CreatedAt,
			&ticket.AssignedAt,
			&ticket.FinishedAt,
		); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return result, nil
}
