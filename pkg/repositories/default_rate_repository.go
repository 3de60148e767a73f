package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/database"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

// DefaultRateRepository provides data access for company-wide role rates.
type DefaultRateRepository interface {
	List(ctx context.Context) ([]*models.DefaultRoleRate, error)
	GetByRole(ctx context.Context, roleID string) (*models.DefaultRoleRate, error)
	// Create inserts a new record with an unset rate. An existing role is left untouched.
	Create(ctx context.Context, roleID, roleName string, at time.Time) error
	// Touch refreshes the display name and last_sync, preserving the rate.
	Touch(ctx context.Context, roleID, roleName string, at time.Time) error
	UpdateRate(ctx context.Context, roleID string, rate *int) error
	// DeleteStale removes the given roles, but only those last synced before olderThan.
	DeleteStale(ctx context.Context, roleIDs []string, olderThan time.Time) (int64, error)
}

type defaultRateRepository struct {
	db *database.DB
}

// NewDefaultRateRepository creates a new DefaultRateRepository.
func NewDefaultRateRepository(db *database.DB) DefaultRateRepository {
	return &defaultRateRepository{db: db}
}

var _ DefaultRateRepository = (*defaultRateRepository)(nil)

const defaultRateColumns = `id, role_id, role_name, default_rate, last_sync, created_at, updated_at`

func (r *defaultRateRepository) List(ctx context.Context) ([]*models.DefaultRoleRate, error) {
	query := `SELECT ` + defaultRateColumns + ` FROM default_role_rates ORDER BY role_name, role_id`

	rows, err := r.db.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list default rates: %w", err)
	}
	defer rows.Close()

	rates := make([]*models.DefaultRoleRate, 0)
	for rows.Next() {
		rate, err := scanDefaultRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating default rates: %w", err)
	}
	return rates, nil
}

func (r *defaultRateRepository) GetByRole(ctx context.Context, roleID string) (*models.DefaultRoleRate, error) {
	query := `SELECT ` + defaultRateColumns + ` FROM default_role_rates WHERE role_id = $1`

	rate, err := scanDefaultRate(r.db.Conn(ctx).QueryRow(ctx, query, roleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return rate, nil
}

func (r *defaultRateRepository) Create(ctx context.Context, roleID, roleName string, at time.Time) error {
	query := `
		INSERT INTO default_role_rates (role_id, role_name, default_rate, last_sync, created_at, updated_at)
		VALUES ($1, $2, NULL, $3, $3, $3)
		ON CONFLICT (role_id) DO NOTHING`

	if _, err := r.db.Conn(ctx).Exec(ctx, query, roleID, roleName, at); err != nil {
		return fmt.Errorf("failed to create default rate: %w", err)
	}
	return nil
}

func (r *defaultRateRepository) Touch(ctx context.Context, roleID, roleName string, at time.Time) error {
	query := `
		UPDATE default_role_rates
		SET role_name = $2, last_sync = $3, updated_at = $3
		WHERE role_id = $1`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, roleID, roleName, at)
	if err != nil {
		return fmt.Errorf("failed to touch default rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *defaultRateRepository) UpdateRate(ctx context.Context, roleID string, rate *int) error {
	query := `
		UPDATE default_role_rates
		SET default_rate = $2, updated_at = NOW()
		WHERE role_id = $1`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, roleID, rate)
	if err != nil {
		return fmt.Errorf("failed to update default rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *defaultRateRepository) DeleteStale(ctx context.Context, roleIDs []string, olderThan time.Time) (int64, error) {
	if len(roleIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM default_role_rates WHERE role_id = ANY($1) AND last_sync < $2`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, roleIDs, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale default rates: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanDefaultRate(row pgx.Row) (*models.DefaultRoleRate, error) {
	var rate models.DefaultRoleRate
	err := row.Scan(
		&rate.ID, &rate.RoleID, &rate.RoleName, &rate.DefaultRate,
		&rate.LastSync, &rate.CreatedAt, &rate.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan default rate: %w", err)
	}
	return &rate, nil
}
