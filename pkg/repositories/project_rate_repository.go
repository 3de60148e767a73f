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

// ProjectRateRepository provides data access for board-scoped explicit rates.
type ProjectRateRepository interface {
	ListByBoard(ctx context.Context, projectID, boardID string) ([]*models.ProjectRate, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.ProjectRate, error)
	Get(ctx context.Context, projectID, boardID, roleID string) (*models.ProjectRate, error)
	// Create inserts a new triple with an unset rate. An existing triple is left untouched.
	Create(ctx context.Context, rate *models.ProjectRate) error
	// Touch refreshes titles and last_sync, preserving the rate.
	Touch(ctx context.Context, rate *models.ProjectRate) error
	UpdateRate(ctx context.Context, projectID, boardID, roleID string, rate *int) error
	// DeleteStale removes the given roles of one board, but only those last synced before olderThan.
	DeleteStale(ctx context.Context, projectID, boardID string, roleIDs []string, olderThan time.Time) (int64, error)
}

type projectRateRepository struct {
	db *database.DB
}

// NewProjectRateRepository creates a new ProjectRateRepository.
func NewProjectRateRepository(db *database.DB) ProjectRateRepository {
	return &projectRateRepository{db: db}
}

var _ ProjectRateRepository = (*projectRateRepository)(nil)

const projectRateColumns = `id, project_id, board_id, role_id, project_title, board_title, role_name,
	rate, last_sync, created_at, updated_at`

func (r *projectRateRepository) ListByBoard(ctx context.Context, projectID, boardID string) ([]*models.ProjectRate, error) {
	query := `SELECT ` + projectRateColumns + `
		FROM project_rates
		WHERE project_id = $1 AND board_id = $2
		ORDER BY role_name, role_id`

	return r.list(ctx, query, projectID, boardID)
}

func (r *projectRateRepository) ListByProject(ctx context.Context, projectID string) ([]*models.ProjectRate, error) {
	query := `SELECT ` + projectRateColumns + `
		FROM project_rates
		WHERE project_id = $1
		ORDER BY board_id, role_name, role_id`

	return r.list(ctx, query, projectID)
}

func (r *projectRateRepository) list(ctx context.Context, query string, args ...any) ([]*models.ProjectRate, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list project rates: %w", err)
	}
	defer rows.Close()

	rates := make([]*models.ProjectRate, 0)
	for rows.Next() {
		rate, err := scanProjectRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rates: %w", err)
	}
	return rates, nil
}

func (r *projectRateRepository) Get(ctx context.Context, projectID, boardID, roleID string) (*models.ProjectRate, error) {
	query := `SELECT ` + projectRateColumns + `
		FROM project_rates
		WHERE project_id = $1 AND board_id = $2 AND role_id = $3`

	rate, err := scanProjectRate(r.db.Conn(ctx).QueryRow(ctx, query, projectID, boardID, roleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return rate, nil
}

func (r *projectRateRepository) Create(ctx context.Context, rate *models.ProjectRate) error {
	query := `
		INSERT INTO project_rates (
			project_id, board_id, role_id, project_title, board_title, role_name,
			rate, last_sync, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $7, $7)
		ON CONFLICT (project_id, board_id, role_id) DO NOTHING`

	_, err := r.db.Conn(ctx).Exec(ctx, query,
		rate.ProjectID, rate.BoardID, rate.RoleID,
		rate.ProjectTitle, rate.BoardTitle, rate.RoleName, rate.LastSync,
	)
	if err != nil {
		return fmt.Errorf("failed to create project rate: %w", err)
	}
	return nil
}

func (r *projectRateRepository) Touch(ctx context.Context, rate *models.ProjectRate) error {
	query := `
		UPDATE project_rates
		SET project_title = $4, board_title = $5, role_name = $6, last_sync = $7, updated_at = $7
		WHERE project_id = $1 AND board_id = $2 AND role_id = $3`

	tag, err := r.db.Conn(ctx).Exec(ctx, query,
		rate.ProjectID, rate.BoardID, rate.RoleID,
		rate.ProjectTitle, rate.BoardTitle, rate.RoleName, rate.LastSync,
	)
	if err != nil {
		return fmt.Errorf("failed to touch project rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRateRepository) UpdateRate(ctx context.Context, projectID, boardID, roleID string, rate *int) error {
	query := `
		UPDATE project_rates
		SET rate = $4, updated_at = NOW()
		WHERE project_id = $1 AND board_id = $2 AND role_id = $3`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, projectID, boardID, roleID, rate)
	if err != nil {
		return fmt.Errorf("failed to update project rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRateRepository) DeleteStale(ctx context.Context, projectID, boardID string, roleIDs []string, olderThan time.Time) (int64, error) {
	if len(roleIDs) == 0 {
		return 0, nil
	}
	query := `
		DELETE FROM project_rates
		WHERE project_id = $1 AND board_id = $2 AND role_id = ANY($3) AND last_sync < $4`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, projectID, boardID, roleIDs, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale project rates: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanProjectRate(row pgx.Row) (*models.ProjectRate, error) {
	var rate models.ProjectRate
	err := row.Scan(
		&rate.ID, &rate.ProjectID, &rate.BoardID, &rate.RoleID,
		&rate.ProjectTitle, &rate.BoardTitle, &rate.RoleName,
		&rate.Rate, &rate.LastSync, &rate.CreatedAt, &rate.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project rate: %w", err)
	}
	return &rate, nil
}
