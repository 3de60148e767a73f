package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/repositories"
)

// Sync scopes.
const (
	SyncScopeGlobal = "global"
	SyncScopeBoard  = "board"
)

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	Scope     string `json:"scope"`
	ProjectID string `json:"project_id,omitempty"`
	BoardID   string `json:"board_id,omitempty"`
	Fetched   int    `json:"fetched"`
	Created   int    `json:"created"`
	Touched   int    `json:"touched"`
	Unchanged int    `json:"unchanged"`
	Pruned    int64  `json:"pruned"`
	// Skipped is set when the remote fetch was empty or failed; nothing was written.
	Skipped     bool `json:"skipped"`
	FetchStatus `yaml:",inline"`
}

// Writes returns the number of database rows the pass changed.
func (r *SyncResult) Writes() int64 {
	return int64(r.Created+r.Touched) + r.Pruned
}

// RateSyncConfig holds the reconciliation windows.
type RateSyncConfig struct {
	// StaleAfter is how long a record missing from the remote list survives.
	StaleAfter time.Duration
	// TouchInterval is the minimum last_sync age before an unchanged record is refreshed.
	TouchInterval time.Duration
}

// DefaultRateSyncConfig returns a 7 day staleness window and a 1 hour touch interval.
func DefaultRateSyncConfig() RateSyncConfig {
	return RateSyncConfig{
		StaleAfter:    7 * 24 * time.Hour,
		TouchInterval: time.Hour,
	}
}

// RateSyncService reconciles persisted rate records with remote role lists.
type RateSyncService interface {
	// SyncDefaultRoles reconciles DefaultRoleRate records with the company-wide roles.
	SyncDefaultRoles(ctx context.Context) (*SyncResult, error)
	// SyncBoard reconciles ProjectRate records with the roles of one board.
	SyncBoard(ctx context.Context, projectID, boardID string) (*SyncResult, error)
	// SyncAll runs the global pass followed by one pass per board of every project.
	SyncAll(ctx context.Context) ([]*SyncResult, error)
}

type rateSyncService struct {
	kaiten   KaitenAPI
	defaults repositories.DefaultRateRepository
	rates    repositories.ProjectRateRepository
	config   RateSyncConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewRateSyncService creates a new RateSyncService.
func NewRateSyncService(
	kaitenAPI KaitenAPI,
	defaults repositories.DefaultRateRepository,
	rates repositories.ProjectRateRepository,
	config RateSyncConfig,
	logger *zap.Logger,
) RateSyncService {
	return newRateSyncService(kaitenAPI, defaults, rates, config, time.Now, logger)
}

func newRateSyncService(
	kaitenAPI KaitenAPI,
	defaults repositories.DefaultRateRepository,
	rates repositories.ProjectRateRepository,
	config RateSyncConfig,
	now func() time.Time,
	logger *zap.Logger,
) *rateSyncService {
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultRateSyncConfig().StaleAfter
	}
	return &rateSyncService{
		kaiten:   kaitenAPI,
		defaults: defaults,
		rates:    rates,
		config:   config,
		now:      now,
		logger:   logger.Named("rate-sync"),
	}
}

var _ RateSyncService = (*rateSyncService)(nil)

func (s *rateSyncService) SyncDefaultRoles(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{Scope: SyncScopeGlobal}

	roles, err := s.kaiten.Roles(ctx)
	if canceled(ctx, err) {
		return nil, err
	}
	if result.absorb(err, s.logger, "roles") || len(roles) == 0 {
		result.Skipped = true
		s.logger.Info("Skipping default role sync, no roles fetched")
		return result, nil
	}
	result.Fetched = len(roles)

	existing, err := s.defaults.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list default rates: %w", err)
	}
	byRole := make(map[string]*models.DefaultRoleRate, len(existing))
	for _, d := range existing {
		byRole[d.RoleID] = d
	}

	now := s.now()
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleID := string(role.ID)
		seen[roleID] = struct{}{}

		current, ok := byRole[roleID]
		switch {
		case !ok:
			if err := s.defaults.Create(ctx, roleID, role.Name, now); err != nil {
				return nil, err
			}
			result.Created++
		case current.RoleName != role.Name || s.due(current.LastSync, now):
			if err := s.defaults.Touch(ctx, roleID, role.Name, now); err != nil {
				return nil, err
			}
			result.Touched++
		default:
			result.Unchanged++
		}
	}

	cutoff := now.Add(-s.config.StaleAfter)
	var stale []string
	for _, d := range existing {
		if _, ok := seen[d.RoleID]; !ok && d.LastSync.Before(cutoff) {
			stale = append(stale, d.RoleID)
		}
	}
	if len(stale) > 0 {
		pruned, err := s.defaults.DeleteStale(ctx, stale, cutoff)
		if err != nil {
			return nil, err
		}
		result.Pruned = pruned
	}

	s.logger.Info("Default role sync complete",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("touched", result.Touched),
		zap.Int64("pruned", result.Pruned))
	return result, nil
}

func (s *rateSyncService) SyncBoard(ctx context.Context, projectID, boardID string) (*SyncResult, error) {
	projectTitle, boardTitle, status := s.lookupTitles(ctx, projectID, boardID)
	result, err := s.syncBoard(ctx, projectID, boardID, projectTitle, boardTitle)
	if err != nil {
		return nil, err
	}
	result.Merge(status)
	return result, nil
}

// lookupTitles finds the display titles of a board. Failures leave titles empty,
// in which case stored titles are kept.
func (s *rateSyncService) lookupTitles(ctx context.Context, projectID, boardID string) (string, string, FetchStatus) {
	var status FetchStatus
	var projectTitle, boardTitle string

	projects, err := s.kaiten.Projects(ctx)
	if !status.absorb(err, s.logger, "projects") {
		for _, p := range projects {
			if string(p.ID) == projectID {
				projectTitle = p.Title
				break
			}
		}
	}
	boards, err := s.kaiten.Boards(ctx, projectID)
	if !status.absorb(err, s.logger, "boards", zap.String("project_id", projectID)) {
		for _, b := range boards {
			if string(b.ID) == boardID {
				boardTitle = b.Title
				break
			}
		}
	}
	return projectTitle, boardTitle, status
}

func (s *rateSyncService) syncBoard(ctx context.Context, projectID, boardID, projectTitle, boardTitle string) (*SyncResult, error) {
	result := &SyncResult{Scope: SyncScopeBoard, ProjectID: projectID, BoardID: boardID}
	logger := s.logger.With(zap.String("project_id", projectID), zap.String("board_id", boardID))

	roles, err := s.kaiten.BoardRoles(ctx, projectID, boardID)
	if canceled(ctx, err) {
		return nil, err
	}
	if result.absorb(err, logger, "board roles") || len(roles) == 0 {
		result.Skipped = true
		logger.Info("Skipping board sync, no roles fetched")
		return result, nil
	}
	result.Fetched = len(roles)

	existing, err := s.rates.ListByBoard(ctx, projectID, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board rates: %w", err)
	}
	byRole := make(map[string]*models.ProjectRate, len(existing))
	for _, r := range existing {
		byRole[r.RoleID] = r
	}

	now := s.now()
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleID := string(role.ID)
		seen[roleID] = struct{}{}

		current, ok := byRole[roleID]
		if !ok {
			err := s.rates.Create(ctx, &models.ProjectRate{
				ProjectID:    projectID,
				BoardID:      boardID,
				RoleID:       roleID,
				ProjectTitle: projectTitle,
				BoardTitle:   boardTitle,
				RoleName:     role.Name,
				LastSync:     now,
			})
			if err != nil {
				return nil, err
			}
			result.Created++
			continue
		}

		next := *current
		next.RoleName = role.Name
		if projectTitle != "" {
			next.ProjectTitle = projectTitle
		}
		if boardTitle != "" {
			next.BoardTitle = boardTitle
		}
		changed := next.RoleName != current.RoleName ||
			next.ProjectTitle != current.ProjectTitle ||
			next.BoardTitle != current.BoardTitle
		if !changed && !s.due(current.LastSync, now) {
			result.Unchanged++
			continue
		}
		next.LastSync = now
		if err := s.rates.Touch(ctx, &next); err != nil {
			return nil, err
		}
		result.Touched++
	}

	cutoff := now.Add(-s.config.StaleAfter)
	var stale []string
	for _, r := range existing {
		if _, ok := seen[r.RoleID]; !ok && r.LastSync.Before(cutoff) {
			stale = append(stale, r.RoleID)
		}
	}
	if len(stale) > 0 {
		pruned, err := s.rates.DeleteStale(ctx, projectID, boardID, stale, cutoff)
		if err != nil {
			return nil, err
		}
		result.Pruned = pruned
	}

	logger.Info("Board sync complete",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("touched", result.Touched),
		zap.Int64("pruned", result.Pruned))
	return result, nil
}

func (s *rateSyncService) SyncAll(ctx context.Context) ([]*SyncResult, error) {
	global, err := s.SyncDefaultRoles(ctx)
	if err != nil {
		return nil, err
	}
	results := []*SyncResult{global}

	projects, err := s.kaiten.Projects(ctx)
	if canceled(ctx, err) {
		return results, err
	}
	var status FetchStatus
	if status.absorb(err, s.logger, "projects") {
		global.Merge(status)
		return results, nil
	}

	for _, project := range projects {
		projectID := string(project.ID)
		boards, err := s.kaiten.Boards(ctx, projectID)
		if canceled(ctx, err) {
			return results, err
		}
		var boardStatus FetchStatus
		if boardStatus.absorb(err, s.logger, "boards", zap.String("project_id", projectID)) {
			results = append(results, &SyncResult{
				Scope:       SyncScopeBoard,
				ProjectID:   projectID,
				Skipped:     true,
				FetchStatus: boardStatus,
			})
			continue
		}
		for _, board := range boards {
			result, err := s.syncBoard(ctx, projectID, string(board.ID), project.Title, board.Title)
			if err != nil {
				return results, err
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// due reports whether an unchanged record should have its last_sync refreshed.
func (s *rateSyncService) due(lastSync, now time.Time) bool {
	return now.Sub(lastSync) >= s.config.TouchInterval
}
