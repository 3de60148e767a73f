package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/repositories"
)

// RoleOverrideService manages per-user role overrides.
type RoleOverrideService interface {
	List(ctx context.Context) ([]*models.RoleOverride, error)
	Get(ctx context.Context, kaitenUserID string) (*models.RoleOverride, error)
	// Set creates or replaces the override of one user.
	Set(ctx context.Context, override *models.RoleOverride) (*models.RoleOverride, error)
	Delete(ctx context.Context, kaitenUserID string) error
	// Lookup returns the overrides keyed by Kaiten user id.
	Lookup(ctx context.Context) (map[string]string, error)
}

type roleOverrideService struct {
	repo   repositories.RoleOverrideRepository
	logger *zap.Logger
}

// NewRoleOverrideService creates a new RoleOverrideService.
func NewRoleOverrideService(repo repositories.RoleOverrideRepository, logger *zap.Logger) RoleOverrideService {
	return &roleOverrideService{
		repo:   repo,
		logger: logger.Named("role-overrides"),
	}
}

var _ RoleOverrideService = (*roleOverrideService)(nil)

func (s *roleOverrideService) List(ctx context.Context) ([]*models.RoleOverride, error) {
	return s.repo.List(ctx)
}

func (s *roleOverrideService) Get(ctx context.Context, kaitenUserID string) (*models.RoleOverride, error) {
	return s.repo.GetByUser(ctx, kaitenUserID)
}

func (s *roleOverrideService) Set(ctx context.Context, override *models.RoleOverride) (*models.RoleOverride, error) {
	override.KaitenUserID = strings.TrimSpace(override.KaitenUserID)
	override.OverrideRoleID = strings.TrimSpace(override.OverrideRoleID)
	override.Email = strings.TrimSpace(override.Email)
	if override.KaitenUserID == "" {
		return nil, fmt.Errorf("%w: kaiten_user_id is required", apperrors.ErrInvalidInput)
	}
	if override.OverrideRoleID == "" {
		return nil, fmt.Errorf("%w: override_role_id is required", apperrors.ErrInvalidInput)
	}

	if err := s.repo.Upsert(ctx, override); err != nil {
		return nil, err
	}
	s.logger.Info("Role override saved",
		zap.String("kaiten_user_id", override.KaitenUserID),
		zap.String("override_role_id", override.OverrideRoleID))
	return override, nil
}

func (s *roleOverrideService) Delete(ctx context.Context, kaitenUserID string) error {
	if err := s.repo.Delete(ctx, kaitenUserID); err != nil {
		return err
	}
	s.logger.Info("Role override deleted", zap.String("kaiten_user_id", kaitenUserID))
	return nil
}

func (s *roleOverrideService) Lookup(ctx context.Context) (map[string]string, error) {
	overrides, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list role overrides: %w", err)
	}
	out := make(map[string]string, len(overrides))
	for _, o := range overrides {
		out[o.KaitenUserID] = o.OverrideRoleID
	}
	return out, nil
}
