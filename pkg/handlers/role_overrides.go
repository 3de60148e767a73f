package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

// RoleOverridesHandler manages per-user role overrides.
type RoleOverridesHandler struct {
	overrides services.RoleOverrideService
	logger    *zap.Logger
}

// NewRoleOverridesHandler creates a new role overrides handler.
func NewRoleOverridesHandler(overrides services.RoleOverrideService, logger *zap.Logger) *RoleOverridesHandler {
	return &RoleOverridesHandler{
		overrides: overrides,
		logger:    logger,
	}
}

// RegisterRoutes registers the role overrides handler's routes on the given mux.
func (h *RoleOverridesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/role-overrides", h.List)
	mux.HandleFunc("GET /api/role-overrides/{uid}", h.Get)
	mux.HandleFunc("PUT /api/role-overrides/{uid}", h.Put)
	mux.HandleFunc("DELETE /api/role-overrides/{uid}", h.Delete)
}

type putOverrideRequest struct {
	Email          string `json:"email"`
	OverrideRoleID string `json:"override_role_id"`
}

// List handles GET /api/role-overrides
func (h *RoleOverridesHandler) List(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.overrides.List(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "List role overrides", err)
		return
	}
	if overrides == nil {
		overrides = make([]*models.RoleOverride, 0)
	}
	writeOK(w, h.logger, ApiResponse{Data: overrides})
}

// Get handles GET /api/role-overrides/{uid}
func (h *RoleOverridesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}
	override, err := h.overrides.Get(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, h.logger, "Get role override", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Data: override})
}

// Put handles PUT /api/role-overrides/{uid}
func (h *RoleOverridesHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}
	var req putOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, "Save role override", err)
		return
	}

	saved, err := h.overrides.Set(r.Context(), &models.RoleOverride{
		KaitenUserID:   userID,
		Email:          req.Email,
		OverrideRoleID: req.OverrideRoleID,
	})
	if err != nil {
		WriteServiceError(w, h.logger, "Save role override", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Data: saved, Message: "Role override saved"})
}

// Delete handles DELETE /api/role-overrides/{uid}
func (h *RoleOverridesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.overrides.Delete(r.Context(), userID); err != nil {
		WriteServiceError(w, h.logger, "Delete role override", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Message: "Role override deleted"})
}
