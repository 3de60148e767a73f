package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

// SyncHandler triggers rate scaffold reconciliation on demand.
type SyncHandler struct {
	sync   services.RateSyncService
	logger *zap.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(sync services.RateSyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		sync:   sync,
		logger: logger,
	}
}

// RegisterRoutes registers the sync routes. limit wraps each route; pass nil
// to register them unthrottled.
func (h *SyncHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.HandlerFunc) http.HandlerFunc) {
	if limit == nil {
		limit = func(next http.HandlerFunc) http.HandlerFunc { return next }
	}
	mux.HandleFunc("POST /api/sync", limit(h.SyncAll))
	mux.HandleFunc("POST /api/sync/roles", limit(h.SyncRoles))
	mux.HandleFunc("POST /api/projects/{pid}/boards/{bid}/sync", limit(h.SyncBoard))
}

// SyncRoles handles POST /api/sync/roles
func (h *SyncHandler) SyncRoles(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.SyncDefaultRoles(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "Sync roles", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Data: result, Degraded: result.Degraded, Refused: result.Refused})
}

// SyncBoard handles POST /api/projects/{pid}/boards/{bid}/sync
func (h *SyncHandler) SyncBoard(w http.ResponseWriter, r *http.Request) {
	projectID, boardID, ok := ParseProjectAndBoardIDs(w, r, h.logger)
	if !ok {
		return
	}
	result, err := h.sync.SyncBoard(r.Context(), projectID, boardID)
	if err != nil {
		WriteServiceError(w, h.logger, "Sync board", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Data: result, Degraded: result.Degraded, Refused: result.Refused})
}

// SyncAll handles POST /api/sync
func (h *SyncHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.sync.SyncAll(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "Sync all", err)
		return
	}
	resp := ApiResponse{Data: results}
	for _, res := range results {
		resp.Degraded = resp.Degraded || res.Degraded
		resp.Refused = resp.Refused || res.Refused
	}
	writeOK(w, h.logger, resp)
}
