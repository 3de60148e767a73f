package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/database"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

// RoleOverrideRepository provides data access for per-user role overrides.
type RoleOverrideRepository interface {
	List(ctx context.Context) ([]*models.RoleOverride, error)
	GetByUser(ctx context.Context, kaitenUserID string) (*models.RoleOverride, error)
	Upsert(ctx context.Context, override *models.RoleOverride) error
	Delete(ctx context.Context, kaitenUserID string) error
}

type roleOverrideRepository struct {
	db *database.DB
}

// NewRoleOverrideRepository creates a new RoleOverrideRepository.
func NewRoleOverrideRepository(db *database.DB) RoleOverrideRepository {
	return &roleOverrideRepository{db: db}
}

var _ RoleOverrideRepository = (*roleOverrideRepository)(nil)

func (r *roleOverrideRepository) List(ctx context.Context) ([]*models.RoleOverride, error) {
	query := `
		SELECT id, kaiten_user_id, email, override_role_id, created_at, updated_at
		FROM role_overrides
		ORDER BY kaiten_user_id`

	rows, err := r.db.Conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list role overrides: %w", err)
	}
	defer rows.Close()

	overrides := make([]*models.RoleOverride, 0)
	for rows.Next() {
		o, err := scanRoleOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role overrides: %w", err)
	}
	return overrides, nil
}

func (r *roleOverrideRepository) GetByUser(ctx context.Context, kaitenUserID string) (*models.RoleOverride, error) {
	query := `
		SELECT id, kaiten_user_id, email, override_role_id, created_at, updated_at
		FROM role_overrides
		WHERE kaiten_user_id = $1`

	o, err := scanRoleOverride(r.db.Conn(ctx).QueryRow(ctx, query, kaitenUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *roleOverrideRepository) Upsert(ctx context.Context, override *models.RoleOverride) error {
	query := `
		INSERT INTO role_overrides (kaiten_user_id, email, override_role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (kaiten_user_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			override_role_id = EXCLUDED.override_role_id,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.Conn(ctx).QueryRow(ctx, query,
		override.KaitenUserID, override.Email, override.OverrideRoleID,
	).Scan(&override.ID, &override.CreatedAt, &override.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert role override: %w", err)
	}
	return nil
}

func (r *roleOverrideRepository) Delete(ctx context.Context, kaitenUserID string) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM role_overrides WHERE kaiten_user_id = $1`, kaitenUserID)
	if err != nil {
		return fmt.Errorf("failed to delete role override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanRoleOverride(row pgx.Row) (*models.RoleOverride, error) {
	var o models.RoleOverride
	err := row.Scan(&o.ID, &o.KaitenUserID, &o.Email, &o.OverrideRoleID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan role override: %w", err)
	}
	return &o, nil
}
