package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

// mockKaiten is an in-memory KaitenAPI. Error fields override the data.
type mockKaiten struct {
	mu sync.Mutex

	projects   []kaiten.Project
	boards     map[string][]kaiten.Board
	boardRoles map[string][]kaiten.Role // key: projectID/boardID
	roles      []kaiten.Role
	cards      []kaiten.Card
	timeLogs   map[string][]kaiten.TimeLog

	projectsErr   error
	boardsErr     error
	boardRolesErr error
	rolesErr      error
	cardsErr      error
	timeLogsErr   map[string]error

	lastCardQuery kaiten.CardQuery
	timeLogCalls  int
}

func newMockKaiten() *mockKaiten {
	return &mockKaiten{
		boards:      map[string][]kaiten.Board{},
		boardRoles:  map[string][]kaiten.Role{},
		timeLogs:    map[string][]kaiten.TimeLog{},
		timeLogsErr: map[string]error{},
	}
}

func (m *mockKaiten) Projects(ctx context.Context) ([]kaiten.Project, error) {
	return m.projects, m.projectsErr
}

func (m *mockKaiten) Boards(ctx context.Context, projectID string) ([]kaiten.Board, error) {
	if m.boardsErr != nil {
		return nil, m.boardsErr
	}
	return m.boards[projectID], nil
}

func (m *mockKaiten) BoardRoles(ctx context.Context, projectID, boardID string) ([]kaiten.Role, error) {
	if m.boardRolesErr != nil {
		return nil, m.boardRolesErr
	}
	return m.boardRoles[projectID+"/"+boardID], nil
}

func (m *mockKaiten) Roles(ctx context.Context) ([]kaiten.Role, error) {
	return m.roles, m.rolesErr
}

func (m *mockKaiten) Users(ctx context.Context) ([]kaiten.User, error) {
	return nil, nil
}

func (m *mockKaiten) Cards(ctx context.Context, q kaiten.CardQuery) ([]kaiten.Card, error) {
	m.mu.Lock()
	m.lastCardQuery = q
	m.mu.Unlock()
	return m.cards, m.cardsErr
}

func (m *mockKaiten) TimeLogs(ctx context.Context, cardID string) ([]kaiten.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeLogCalls++
	if err := m.timeLogsErr[cardID]; err != nil {
		return nil, err
	}
	return m.timeLogs[cardID], nil
}

func (m *mockKaiten) SelectValues(ctx context.Context, propertyID string) ([]kaiten.SelectValue, error) {
	return nil, nil
}

func (m *mockKaiten) Columns(ctx context.Context, boardID string) ([]kaiten.Column, error) {
	return nil, nil
}

func (m *mockKaiten) Lanes(ctx context.Context, boardID string) ([]kaiten.Lane, error) {
	return nil, nil
}

// writeCounter counts mutating repository calls.
type writeCounter struct {
	creates, touches, updates, deletes int
}

func (w *writeCounter) total() int {
	return w.creates + w.touches + w.updates + w.deletes
}

type mockDefaultRateRepo struct {
	rows   map[string]*models.DefaultRoleRate
	writes writeCounter

	listErr   error
	updateErr error
}

func newMockDefaultRateRepo(rows ...*models.DefaultRoleRate) *mockDefaultRateRepo {
	m := &mockDefaultRateRepo{rows: map[string]*models.DefaultRoleRate{}}
	for _, r := range rows {
		m.rows[r.RoleID] = r
	}
	return m
}

func (m *mockDefaultRateRepo) List(ctx context.Context) ([]*models.DefaultRoleRate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.DefaultRoleRate, 0, len(m.rows))
	for _, r := range m.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (m *mockDefaultRateRepo) GetByRole(ctx context.Context, roleID string) (*models.DefaultRoleRate, error) {
	r, ok := m.rows[roleID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockDefaultRateRepo) Create(ctx context.Context, roleID, roleName string, at time.Time) error {
	m.writes.creates++
	if _, ok := m.rows[roleID]; ok {
		return nil
	}
	m.rows[roleID] = &models.DefaultRoleRate{RoleID: roleID, RoleName: roleName, LastSync: at}
	return nil
}

func (m *mockDefaultRateRepo) Touch(ctx context.Context, roleID, roleName string, at time.Time) error {
	m.writes.touches++
	r, ok := m.rows[roleID]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.RoleName = roleName
	r.LastSync = at
	return nil
}

func (m *mockDefaultRateRepo) UpdateRate(ctx context.Context, roleID string, rate *int) error {
	m.writes.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.rows[roleID]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.DefaultRate = rate
	return nil
}

func (m *mockDefaultRateRepo) DeleteStale(ctx context.Context, roleIDs []string, olderThan time.Time) (int64, error) {
	m.writes.deletes++
	var n int64
	for _, id := range roleIDs {
		if r, ok := m.rows[id]; ok && r.LastSync.Before(olderThan) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

type mockProjectRateRepo struct {
	rows   map[string]*models.ProjectRate // key: project/board/role
	writes writeCounter

	listErr error
}

func newMockProjectRateRepo(rows ...*models.ProjectRate) *mockProjectRateRepo {
	m := &mockProjectRateRepo{rows: map[string]*models.ProjectRate{}}
	for _, r := range rows {
		m.rows[rateKey(r.ProjectID, r.BoardID, r.RoleID)] = r
	}
	return m
}

func rateKey(projectID, boardID, roleID string) string {
	return projectID + "/" + boardID + "/" + roleID
}

func (m *mockProjectRateRepo) ListByBoard(ctx context.Context, projectID, boardID string) ([]*models.ProjectRate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.ProjectRate
	for _, r := range m.rows {
		if r.ProjectID == projectID && r.BoardID == boardID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (m *mockProjectRateRepo) ListByProject(ctx context.Context, projectID string) ([]*models.ProjectRate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.ProjectRate
	for _, r := range m.rows {
		if r.ProjectID == projectID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockProjectRateRepo) Get(ctx context.Context, projectID, boardID, roleID string) (*models.ProjectRate, error) {
	r, ok := m.rows[rateKey(projectID, boardID, roleID)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockProjectRateRepo) Create(ctx context.Context, rate *models.ProjectRate) error {
	m.writes.creates++
	key := rateKey(rate.ProjectID, rate.BoardID, rate.RoleID)
	if _, ok := m.rows[key]; ok {
		return nil
	}
	cp := *rate
	cp.Rate = nil
	m.rows[key] = &cp
	return nil
}

func (m *mockProjectRateRepo) Touch(ctx context.Context, rate *models.ProjectRate) error {
	m.writes.touches++
	r, ok := m.rows[rateKey(rate.ProjectID, rate.BoardID, rate.RoleID)]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.ProjectTitle = rate.ProjectTitle
	r.BoardTitle = rate.BoardTitle
	r.RoleName = rate.RoleName
	r.LastSync = rate.LastSync
	return nil
}

func (m *mockProjectRateRepo) UpdateRate(ctx context.Context, projectID, boardID, roleID string, rate *int) error {
	m.writes.updates++
	r, ok := m.rows[rateKey(projectID, boardID, roleID)]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.Rate = rate
	return nil
}

func (m *mockProjectRateRepo) DeleteStale(ctx context.Context, projectID, boardID string, roleIDs []string, olderThan time.Time) (int64, error) {
	m.writes.deletes++
	var n int64
	for _, id := range roleIDs {
		key := rateKey(projectID, boardID, id)
		if r, ok := m.rows[key]; ok && r.LastSync.Before(olderThan) {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

type mockRoleOverrideRepo struct {
	rows    map[string]*models.RoleOverride
	nextID  int64
	listErr error
}

func newMockRoleOverrideRepo(rows ...*models.RoleOverride) *mockRoleOverrideRepo {
	m := &mockRoleOverrideRepo{rows: map[string]*models.RoleOverride{}}
	for _, r := range rows {
		m.rows[r.KaitenUserID] = r
	}
	return m
}

func (m *mockRoleOverrideRepo) List(ctx context.Context) ([]*models.RoleOverride, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.RoleOverride, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KaitenUserID < out[j].KaitenUserID })
	return out, nil
}

func (m *mockRoleOverrideRepo) GetByUser(ctx context.Context, kaitenUserID string) (*models.RoleOverride, error) {
	r, ok := m.rows[kaitenUserID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r, nil
}

func (m *mockRoleOverrideRepo) Upsert(ctx context.Context, override *models.RoleOverride) error {
	if existing, ok := m.rows[override.KaitenUserID]; ok {
		override.ID = existing.ID
	} else {
		m.nextID++
		override.ID = m.nextID
	}
	cp := *override
	m.rows[override.KaitenUserID] = &cp
	return nil
}

func (m *mockRoleOverrideRepo) Delete(ctx context.Context, kaitenUserID string) error {
	if _, ok := m.rows[kaitenUserID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.rows, kaitenUserID)
	return nil
}

// mockTx runs fn directly; failed runs are counted so tests can assert rollback paths.
type mockTx struct {
	calls    int
	failures int
}

func (m *mockTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if err := fn(ctx); err != nil {
		m.failures++
		return err
	}
	return nil
}

func role(id, name string) kaiten.Role {
	return kaiten.Role{ID: kaiten.ID(id), Name: name}
}
