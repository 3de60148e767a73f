package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

// ProjectsHandler lists Kaiten projects and boards with report readiness.
type ProjectsHandler struct {
	projects services.ProjectsService
	logger   *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projects services.ProjectsService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projects: projects,
		logger:   logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("GET /api/projects/{pid}/boards", h.ListBoards)
}

// ListProjects handles GET /api/projects
// With ?reportable=true only projects with at least one valid board are returned.
func (h *ProjectsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, status, err := h.projects.ListProjects(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "List projects", err)
		return
	}

	if r.URL.Query().Get("reportable") == "true" {
		filtered := make([]models.ProjectValidity, 0, len(projects))
		for _, p := range projects {
			if p.HasRates {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}

	writeOK(w, h.logger, ApiResponse{
		Data:     projects,
		Degraded: status.Degraded,
		Refused:  status.Refused,
	})
}

// ListBoards handles GET /api/projects/{pid}/boards
func (h *ProjectsHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	boards, status, err := h.projects.ListBoards(r.Context(), projectID)
	if err != nil {
		WriteServiceError(w, h.logger, "List boards", err)
		return
	}
	if boards == nil {
		boards = make([]models.BoardValidity, 0)
	}

	writeOK(w, h.logger, ApiResponse{
		Data:     boards,
		Degraded: status.Degraded,
		Refused:  status.Refused,
	})
}
