package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

// ProjectsService lists remote projects annotated with report readiness.
type ProjectsService interface {
	// ListProjects returns every remote project with per-board validity.
	ListProjects(ctx context.Context) ([]models.ProjectValidity, FetchStatus, error)
	// ListBoards returns the boards of one project with validity.
	ListBoards(ctx context.Context, projectID string) ([]models.BoardValidity, FetchStatus, error)
}

type projectsService struct {
	kaiten   KaitenAPI
	resolver RateResolver
	pool     *WorkerPool
	logger   *zap.Logger
}

// NewProjectsService creates a new ProjectsService.
func NewProjectsService(kaitenAPI KaitenAPI, resolver RateResolver, pool *WorkerPool, logger *zap.Logger) ProjectsService {
	return &projectsService{
		kaiten:   kaitenAPI,
		resolver: resolver,
		pool:     pool,
		logger:   logger.Named("projects"),
	}
}

var _ ProjectsService = (*projectsService)(nil)

type projectOutcome struct {
	validity models.ProjectValidity
	status   FetchStatus
}

func (s *projectsService) ListProjects(ctx context.Context) ([]models.ProjectValidity, FetchStatus, error) {
	var status FetchStatus
	projects, err := s.kaiten.Projects(ctx)
	if canceled(ctx, err) {
		return nil, status, err
	}
	if status.absorb(err, s.logger, "projects") {
		return []models.ProjectValidity{}, status, nil
	}

	items := make([]WorkItem[projectOutcome], 0, len(projects))
	for i, p := range projects {
		items = append(items, WorkItem[projectOutcome]{
			Index: i,
			ID:    string(p.ID),
			Execute: func(ctx context.Context) (projectOutcome, error) {
				v, st, err := s.resolver.ProjectValidity(ctx, p)
				return projectOutcome{validity: v, status: st}, err
			},
		})
	}

	out := make([]models.ProjectValidity, 0, len(projects))
	for _, res := range Process(ctx, s.pool, items) {
		if res.Err != nil {
			return nil, status, res.Err
		}
		status.Merge(res.Result.status)
		out = append(out, res.Result.validity)
	}
	return out, status, nil
}

func (s *projectsService) ListBoards(ctx context.Context, projectID string) ([]models.BoardValidity, FetchStatus, error) {
	pv, status, err := s.resolver.ProjectValidity(ctx, kaiten.Project{ID: kaiten.ID(projectID)})
	if err != nil {
		return nil, status, err
	}
	return pv.Boards, status, nil
}
