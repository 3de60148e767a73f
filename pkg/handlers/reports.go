package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

// ReportsHandler builds billing report datasets.
type ReportsHandler struct {
	reports services.ReportService
	logger  *zap.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports services.ReportService, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports: reports,
		logger:  logger,
	}
}

// RegisterRoutes registers the report route. limit wraps it; pass nil for none.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.HandlerFunc) http.HandlerFunc) {
	if limit == nil {
		limit = func(next http.HandlerFunc) http.HandlerFunc { return next }
	}
	mux.HandleFunc("POST /api/reports", limit(h.Generate))
}

// Generate handles POST /api/reports
func (h *ReportsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, "Generate report", err)
		return
	}

	ds, err := h.reports.Generate(r.Context(), req)
	if err != nil {
		WriteServiceError(w, h.logger, "Generate report", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Data: ds, Degraded: ds.Degraded, Refused: ds.Refused})
}
