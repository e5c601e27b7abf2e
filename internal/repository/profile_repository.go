package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// ProfileRepository reads one role's profile collection. The role gate probes
// these in a fixed precedence order to resolve a principal.
type ProfileRepository interface {
	Role() domain.Role
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	List(ctx context.Context, limit, offset int) ([]domain.Profile, error)
}

type profileRepository struct {
	pool  *pgxpool.Pool
	table string
	role  domain.Role
}

// NewTechnicianRepository reads the technician profile collection.
func NewTechnicianRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool, table: "technicians", role: domain.RoleTechnician}
}

// NewAdministratorRepository reads the administrator profile collection.
func NewAdministratorRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool, table: "administrators", role: domain.RoleAdministrator}
}

// NewEmployeeRepository reads the employee profile collection.
func NewEmployeeRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool, table: "employees", role: domain.RoleEmployee}
}

func (r *profileRepository) Role() domain.Role {
	return r.role
}

const profileColumns = `id, first_name, last_name, email, phone, location, password_hash, created_at, updated_at`

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email=$1`, profileColumns, r.table)
	return r.fetchSingle(ctx, query, email)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, profileColumns, r.table)
	return r.fetchSingle(ctx, query, id)
}

func (r *profileRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&profile.ID,
		&profile.FirstName,
		&profile.LastName,
		&profile.Email,
		&profile.Phone,
		&profile.Location,
		&profile.PasswordHash,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", nil)
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	profile.Role = r.role
	return &profile, nil
}

func (r *profileRepository) List(ctx context.Context, limit, offset int) ([]domain.Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY last_name, first_name LIMIT %d OFFSET %d`,
		profileColumns, r.table, limit, offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var profile domain.Profile
		if err := rows.Scan(
			&profile.ID,
			&profile.FirstName,
			&profile.LastName,
			&profile.Email,
			&profile.Phone,
			&profile.Location,
			&profile.PasswordHash,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		profile.Role = r.role
		result = append(result, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return result, nil
}
