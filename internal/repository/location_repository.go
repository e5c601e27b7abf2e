package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// LocationRepository reads the site reference data.
type LocationRepository interface {
	List(ctx context.Context) ([]domain.Location, error)
	GetByID(ctx context.Context, id string) (*domain.Location, error)
}

type locationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository instantiates the repository.
func NewLocationRepository(pool *pgxpool.Pool) LocationRepository {
	return &locationRepository{pool: pool}
}

func (r *locationRepository) List(ctx context.Context) ([]domain.Location, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name_local, status, opening_hours FROM locations ORDER BY name_local`)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	var result []domain.Location
	for rows.Next() {
		var loc domain.Location
		if err := rows.Scan(&loc.ID, &loc.NameLocal, &loc.Status, &loc.OpeningHours); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		result = append(result, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return result, nil
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	var loc domain.Location
	err := r.pool.QueryRow(ctx,
		`SELECT id, name_local, status, opening_hours FROM locations WHERE id=$1`, id,
	).Scan(&loc.ID, &loc.NameLocal, &loc.Status, &loc.OpeningHours)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("location", nil)
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return &loc, nil
}
