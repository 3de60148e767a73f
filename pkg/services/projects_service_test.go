package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

func newTestProjects(api *mockKaiten, rates *mockProjectRateRepo) ProjectsService {
	logger := zap.NewNop()
	resolver := NewRateResolver(api, newMockDefaultRateRepo(), rates, zeroLabel, logger)
	return NewProjectsService(api, resolver, NewWorkerPool(DefaultWorkerPoolConfig(), logger), logger)
}

func TestProjectsService_ListProjects(t *testing.T) {
	api := newMockKaiten()
	api.projects = []kaiten.Project{{ID: "p1", Title: "Acme"}, {ID: "p2", Title: "Globex"}}
	api.boards["p1"] = []kaiten.Board{{ID: "b1"}}
	api.boards["p2"] = []kaiten.Board{{ID: "b2"}}
	api.boardRoles["p1/b1"] = []kaiten.Role{role("dev", "Dev")}
	api.boardRoles["p2/b2"] = []kaiten.Role{role("dev", "Dev")}

	rates := newMockProjectRateRepo(
		&models.ProjectRate{ProjectID: "p1", BoardID: "b1", RoleID: "dev", Rate: models.IntPtr(500)},
	)

	projects, status, err := newTestProjects(api, rates).ListProjects(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Degraded)
	require.Len(t, projects, 2)
	assert.Equal(t, "Acme", projects[0].Title)
	assert.True(t, projects[0].HasRates)
	assert.Equal(t, "Globex", projects[1].Title)
	assert.False(t, projects[1].HasRates)
}

func TestProjectsService_ListProjects_Refused(t *testing.T) {
	api := newMockKaiten()
	api.projectsErr = &kaiten.RefusalError{StatusCode: 403, Reason: "forbidden"}

	projects, status, err := newTestProjects(api, newMockProjectRateRepo()).ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.True(t, status.Refused)
}

func TestProjectsService_ListBoards(t *testing.T) {
	api := newMockKaiten()
	api.boards["p1"] = []kaiten.Board{{ID: "b1", Title: "Main"}}
	api.boardRoles["p1/b1"] = []kaiten.Role{role("dev", "Dev")}

	boards, _, err := newTestProjects(api, newMockProjectRateRepo()).ListBoards(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "Main", boards[0].Title)
	assert.False(t, boards[0].Valid)
	assert.Equal(t, []string{"dev"}, boards[0].MissingRoles)
}
