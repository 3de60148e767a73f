package handlers

import (
	"context"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

type mockProjectsService struct {
	projects []models.ProjectValidity
	boards   []models.BoardValidity
	status   services.FetchStatus
	err      error
}

func (m *mockProjectsService) ListProjects(ctx context.Context) ([]models.ProjectValidity, services.FetchStatus, error) {
	return m.projects, m.status, m.err
}

func (m *mockProjectsService) ListBoards(ctx context.Context, projectID string) ([]models.BoardValidity, services.FetchStatus, error) {
	return m.boards, m.status, m.err
}

type mockRatesService struct {
	boardRates    []*models.ProjectRate
	defaultRates  []*models.DefaultRoleRate
	saveErr       error
	savedUpdates  []models.RateUpdate
	savedProject  string
	savedBoard    string
	defaultsSaved bool
}

func (m *mockRatesService) BoardRates(ctx context.Context, projectID, boardID string) ([]*models.ProjectRate, error) {
	return m.boardRates, nil
}

func (m *mockRatesService) SaveBoardRates(ctx context.Context, projectID, boardID string, updates []models.RateUpdate) ([]*models.ProjectRate, error) {
	m.savedProject, m.savedBoard, m.savedUpdates = projectID, boardID, updates
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return m.boardRates, nil
}

func (m *mockRatesService) DefaultRates(ctx context.Context) ([]*models.DefaultRoleRate, error) {
	return m.defaultRates, nil
}

func (m *mockRatesService) SaveDefaultRates(ctx context.Context, updates []models.RateUpdate) ([]*models.DefaultRoleRate, error) {
	m.savedUpdates = updates
	m.defaultsSaved = true
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return m.defaultRates, nil
}

type mockOverrideService struct {
	rows map[string]*models.RoleOverride
}

func (m *mockOverrideService) List(ctx context.Context) ([]*models.RoleOverride, error) {
	var out []*models.RoleOverride
	for _, o := range m.rows {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOverrideService) Get(ctx context.Context, kaitenUserID string) (*models.RoleOverride, error) {
	o, ok := m.rows[kaitenUserID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return o, nil
}

func (m *mockOverrideService) Set(ctx context.Context, override *models.RoleOverride) (*models.RoleOverride, error) {
	if override.OverrideRoleID == "" {
		return nil, apperrors.ErrInvalidInput
	}
	m.rows[override.KaitenUserID] = override
	return override, nil
}

func (m *mockOverrideService) Delete(ctx context.Context, kaitenUserID string) error {
	if _, ok := m.rows[kaitenUserID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.rows, kaitenUserID)
	return nil
}

func (m *mockOverrideService) Lookup(ctx context.Context) (map[string]string, error) {
	return nil, nil
}

type mockSyncService struct {
	result  *services.SyncResult
	results []*services.SyncResult
	err     error
	board   string
}

func (m *mockSyncService) SyncDefaultRoles(ctx context.Context) (*services.SyncResult, error) {
	return m.result, m.err
}

func (m *mockSyncService) SyncBoard(ctx context.Context, projectID, boardID string) (*services.SyncResult, error) {
	m.board = projectID + "/" + boardID
	return m.result, m.err
}

func (m *mockSyncService) SyncAll(ctx context.Context) ([]*services.SyncResult, error) {
	return m.results, m.err
}

type mockReportService struct {
	dataset *models.Dataset
	err     error
	got     models.ReportRequest
}

func (m *mockReportService) Generate(ctx context.Context, req models.ReportRequest) (*models.Dataset, error) {
	m.got = req
	return m.dataset, m.err
}
