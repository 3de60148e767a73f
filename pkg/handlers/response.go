package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ApiResponse is the envelope of every successful JSON response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	// Degraded and Refused report remote fetches that were replaced by empty results.
	Degraded bool `json:"degraded,omitempty"`
	Refused  bool `json:"refused,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorMapping translates service errors to HTTP responses. Order matters:
// the first match wins.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict"},
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{apperrors.ErrInvalidRate, http.StatusBadRequest, "invalid_rate"},
	{apperrors.ErrIncompleteRates, http.StatusUnprocessableEntity, "incomplete_rates"},
	{apperrors.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{apperrors.ErrNoEntriesInRange, http.StatusNotFound, "no_entries_in_range"},
	{apperrors.ErrProjectNotReady, http.StatusConflict, "project_not_ready"},
	{apperrors.ErrRemoteUnavailable, http.StatusServiceUnavailable, "remote_unavailable"},
}

// WriteServiceError maps err to a status code and writes it. Unknown errors
// are logged and reported as 500 without leaking details.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status, code, message := http.StatusInternalServerError, "internal_error", "Internal server error"

	matched := false
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			status, code, message = m.status, m.code, err.Error()
			matched = true
			break
		}
	}
	if !matched && kaiten.IsRefusal(err) {
		status, code, message = http.StatusServiceUnavailable, "remote_unavailable", apperrors.ErrRemoteUnavailable.Error()
		matched = true
	}

	if matched {
		logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Error(op+" failed", zap.Error(err))
	}
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// decodeJSON reads a bounded JSON body into v. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}

func writeOK(w http.ResponseWriter, logger *zap.Logger, resp ApiResponse) {
	resp.Success = true
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
