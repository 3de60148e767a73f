package handlers

import (
	"net/http"
	"regexp"

	"go.uber.org/zap"
)

// Kaiten identifiers are numeric, but tests and older spaces use short slugs.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ParseProjectID extracts and validates the project ID from the request path.
// Returns the ID and true on success, or "" and false on error
// (after writing an error response).
// Expects path parameter: pid
func ParseProjectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parseID(w, r, "pid", "invalid_project_id", "Invalid project ID format", logger)
}

// ParseBoardID extracts and validates the board ID from the request path.
// Expects path parameter: bid
func ParseBoardID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parseID(w, r, "bid", "invalid_board_id", "Invalid board ID format", logger)
}

// ParseUserID extracts and validates the Kaiten user ID from the request path.
// Expects path parameter: uid
func ParseUserID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	return parseID(w, r, "uid", "invalid_user_id", "Invalid user ID format", logger)
}

// ParseProjectAndBoardIDs extracts and validates both project and board IDs.
// Expects path parameters: pid, bid
func ParseProjectAndBoardIDs(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, string, bool) {
	projectID, ok := ParseProjectID(w, r, logger)
	if !ok {
		return "", "", false
	}
	boardID, ok := ParseBoardID(w, r, logger)
	if !ok {
		return "", "", false
	}
	return projectID, boardID, true
}

func parseID(w http.ResponseWriter, r *http.Request, param, errorCode, message string, logger *zap.Logger) (string, bool) {
	id := r.PathValue(param)
	if !idPattern.MatchString(id) {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, message); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return id, true
}
