package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/repositories"
)

// RatesService lets operators read and edit stored rates.
type RatesService interface {
	// BoardRates returns the explicit rate records of one board.
	BoardRates(ctx context.Context, projectID, boardID string) ([]*models.ProjectRate, error)
	// SaveBoardRates sets the rates of a board. Every stored role of the board
	// must receive a value; the save is all-or-nothing.
	SaveBoardRates(ctx context.Context, projectID, boardID string, updates []models.RateUpdate) ([]*models.ProjectRate, error)
	// DefaultRates returns the company-wide default rates.
	DefaultRates(ctx context.Context) ([]*models.DefaultRoleRate, error)
	// SaveDefaultRates updates any subset of default rates. A nil rate clears the value.
	SaveDefaultRates(ctx context.Context, updates []models.RateUpdate) ([]*models.DefaultRoleRate, error)
}

type ratesService struct {
	tx       Transactor
	defaults repositories.DefaultRateRepository
	rates    repositories.ProjectRateRepository
	logger   *zap.Logger
}

// NewRatesService creates a new RatesService.
func NewRatesService(
	tx Transactor,
	defaults repositories.DefaultRateRepository,
	rates repositories.ProjectRateRepository,
	logger *zap.Logger,
) RatesService {
	return &ratesService{
		tx:       tx,
		defaults: defaults,
		rates:    rates,
		logger:   logger.Named("rates"),
	}
}

var _ RatesService = (*ratesService)(nil)

func (s *ratesService) BoardRates(ctx context.Context, projectID, boardID string) ([]*models.ProjectRate, error) {
	rates, err := s.rates.ListByBoard(ctx, projectID, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board rates: %w", err)
	}
	return rates, nil
}

func (s *ratesService) SaveBoardRates(ctx context.Context, projectID, boardID string, updates []models.RateUpdate) ([]*models.ProjectRate, error) {
	if err := validateUpdates(updates); err != nil {
		return nil, err
	}
	byRole := make(map[string]*int, len(updates))
	for _, u := range updates {
		byRole[u.RoleID] = u.Rate
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.rates.ListByBoard(ctx, projectID, boardID)
		if err != nil {
			return fmt.Errorf("failed to list board rates: %w", err)
		}
		if len(existing) == 0 {
			return apperrors.ErrNotFound
		}
		stored := make(map[string]struct{}, len(existing))
		for _, r := range existing {
			stored[r.RoleID] = struct{}{}
			if rate, ok := byRole[r.RoleID]; !ok || rate == nil {
				return fmt.Errorf("%w: role %s", apperrors.ErrIncompleteRates, r.RoleID)
			}
		}
		for _, u := range updates {
			if _, ok := stored[u.RoleID]; !ok {
				return fmt.Errorf("role %s is not on this board: %w", u.RoleID, apperrors.ErrNotFound)
			}
		}
		for _, u := range updates {
			if err := s.rates.UpdateRate(ctx, projectID, boardID, u.RoleID, u.Rate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Saved board rates",
		zap.String("project_id", projectID),
		zap.String("board_id", boardID),
		zap.Int("count", len(updates)))
	return s.BoardRates(ctx, projectID, boardID)
}

func (s *ratesService) DefaultRates(ctx context.Context) ([]*models.DefaultRoleRate, error) {
	rates, err := s.defaults.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list default rates: %w", err)
	}
	return rates, nil
}

func (s *ratesService) SaveDefaultRates(ctx context.Context, updates []models.RateUpdate) ([]*models.DefaultRoleRate, error) {
	if err := validateUpdates(updates); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, u := range updates {
			if err := s.defaults.UpdateRate(ctx, u.RoleID, u.Rate); err != nil {
				return fmt.Errorf("role %s: %w", u.RoleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Saved default rates", zap.Int("count", len(updates)))
	return s.DefaultRates(ctx)
}

func validateUpdates(updates []models.RateUpdate) error {
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		if u.RoleID == "" {
			return fmt.Errorf("%w: role_id is required", apperrors.ErrInvalidInput)
		}
		if _, dup := seen[u.RoleID]; dup {
			return fmt.Errorf("%w: role %s listed twice", apperrors.ErrConflict, u.RoleID)
		}
		seen[u.RoleID] = struct{}{}
		if u.Rate != nil && *u.Rate < 0 {
			return fmt.Errorf("%w: role %s", apperrors.ErrInvalidRate, u.RoleID)
		}
	}
	return nil
}
