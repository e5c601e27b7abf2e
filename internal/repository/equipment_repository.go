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

// EquipmentRepository reads the device registry tickets are filed against.
type EquipmentRepository interface {
	List(ctx context.Context) ([]domain.Equipment, error)
	ListByLocation(ctx context.Context, location string) ([]domain.Equipment, error)
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
}

type equipmentRepository struct {
	pool *pgxpool.Pool
}

// NewEquipmentRepository instantiates the repository.
func NewEquipmentRepository(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepository{pool: pool}
}

const equipmentColumns = `id, name, category, serial_number, location, status, created_at`

func (r *equipmentRepository) List(ctx context.Context) ([]domain.Equipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM equipment ORDER BY location, name`, equipmentColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()
	return scanEquipment(rows)
}

func (r *equipmentRepository) ListByLocation(ctx context.Context, location string) ([]domain.Equipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE location=$1 ORDER BY name`, equipmentColumns)
	rows, err := r.pool.Query(ctx, query, location)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()
	return scanEquipment(rows)
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE id=$1`, equipmentColumns)
	var eq domain.Equipment
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&eq.ID, &eq.Name, &eq.Category, &eq.SerialNumber, &eq.Location, &eq.Status, &eq.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("equipment", nil)
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return &eq, nil
}

func scanEquipment(rows pgx.Rows) ([]domain.Equipment, error) {
	var result []domain.Equipment
	for rows.Next() {
		var eq domain.Equipment
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.Category, &eq.SerialNumber, &eq.Location, &eq.Status, &eq.CreatedAt); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		result = append(result, eq)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return result, nil
}
