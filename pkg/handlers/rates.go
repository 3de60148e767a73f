package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/jsonutil"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

// RatesHandler serves board rates and company-wide default rates.
type RatesHandler struct {
	rates  services.RatesService
	logger *zap.Logger
}

// NewRatesHandler creates a new rates handler.
func NewRatesHandler(rates services.RatesService, logger *zap.Logger) *RatesHandler {
	return &RatesHandler{
		rates:  rates,
		logger: logger,
	}
}

// RegisterRoutes registers the rates handler's routes on the given mux.
func (h *RatesHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/projects/{pid}/boards/{bid}/rates"
	mux.HandleFunc("GET "+base, h.GetBoardRates)
	mux.HandleFunc("PUT "+base, h.SaveBoardRates)
	mux.HandleFunc("GET /api/default-rates", h.GetDefaultRates)
	mux.HandleFunc("PUT /api/default-rates", h.SaveDefaultRates)
}

// rateInput accepts a number, a numeric string, null or "" for the rate.
type rateInput struct {
	RoleID string          `json:"role_id"`
	Rate   json.RawMessage `json:"rate"`
}

type saveRatesRequest struct {
	Rates []rateInput `json:"rates"`
}

func (req saveRatesRequest) updates() ([]models.RateUpdate, error) {
	out := make([]models.RateUpdate, 0, len(req.Rates))
	for _, in := range req.Rates {
		rate, err := jsonutil.ParseOptionalInt(in.Rate)
		if err != nil {
			return nil, fmt.Errorf("%w: role %s: %v", apperrors.ErrInvalidRate, in.RoleID, err)
		}
		out = append(out, models.RateUpdate{RoleID: in.RoleID, Rate: rate})
	}
	return out, nil
}

// GetBoardRates handles GET /api/projects/{pid}/boards/{bid}/rates
func (h *RatesHandler) GetBoardRates(w http.ResponseWriter, r *http.Request) {
	projectID, boardID, ok := ParseProjectAndBoardIDs(w, r, h.logger)
	if !ok {
		return
	}

	rates, err := h.rates.BoardRates(r.Context(), projectID, boardID)
	if err != nil {
		WriteServiceError(w, h.logger, "Get board rates", err)
		return
	}
	if rates == nil {
		rates = make([]*models.ProjectRate, 0)
	}
	writeOK(w, h.logger, ApiResponse{Data: rates})
}

// SaveBoardRates handles PUT /api/projects/{pid}/boards/{bid}/rates
func (h *RatesHandler) SaveBoardRates(w http.ResponseWriter, r *http.Request) {
	projectID, boardID, ok := ParseProjectAndBoardIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req saveRatesRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, "Save board rates", err)
		return
	}
	updates, err := req.updates()
	if err != nil {
		WriteServiceError(w, h.logger, "Save board rates", err)
		return
	}

	saved, err := h.rates.SaveBoardRates(r.Context(), projectID, boardID, updates)
	if err != nil {
		WriteServiceError(w, h.logger, "Save board rates", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Data: saved, Message: "Rates saved"})
}

// GetDefaultRates handles GET /api/default-rates
func (h *RatesHandler) GetDefaultRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates.DefaultRates(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "Get default rates", err)
		return
	}
	if rates == nil {
		rates = make([]*models.DefaultRoleRate, 0)
	}
	writeOK(w, h.logger, ApiResponse{Data: rates})
}

// SaveDefaultRates handles PUT /api/default-rates
func (h *RatesHandler) SaveDefaultRates(w http.ResponseWriter, r *http.Request) {
	var req saveRatesRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, "Save default rates", err)
		return
	}
	updates, err := req.updates()
	if err != nil {
		WriteServiceError(w, h.logger, "Save default rates", err)
		return
	}

	saved, err := h.rates.SaveDefaultRates(r.Context(), updates)
	if err != nil {
		WriteServiceError(w, h.logger, "Save default rates", err)
		return
	}
	writeOK(w, h.logger, ApiResponse{Data: saved, Message: "Default rates saved"})
}
