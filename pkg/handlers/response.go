package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
)

// maxBodyBytes bounds request bodies. Submissions are the largest payload.
const maxBodyBytes = 2 << 20

// ApiResponse is the envelope for every successful JSON response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
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
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeData wraps data in a successful ApiResponse.
func writeData(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeServiceError maps a service error onto its HTTP status.
// Conflicts carry their conflict code so clients can render "no longer actionable" states.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, code, message, logger)
}

func classifyError(err error) (status int, code, message string) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_failed", verr.Error()
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation_failed", err.Error()
	case errors.Is(err, apperrors.ErrNotAssignmentOwner):
		return http.StatusForbidden, "not_assignment_owner", "Assignment belongs to another writer"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "forbidden", "You do not have permission for this action"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found", "Resource not found"
	case errors.Is(err, apperrors.ErrStateConflict):
		if c := apperrors.ConflictCode(err); c != "" {
			var conflict *apperrors.ConflictError
			errors.As(err, &conflict)
			return http.StatusConflict, c, conflict.Message
		}
		return http.StatusConflict, "conflict", "Request conflicts with the current state"
	case errors.Is(err, apperrors.ErrDependencyFailed):
		return http.StatusBadGateway, "analysis_unavailable", "The analysis provider is unavailable; retry later"
	case errors.Is(err, apperrors.ErrCredentialsKeyMismatch):
		return http.StatusInternalServerError, "credentials_key_mismatch", "Stored credentials cannot be decrypted with the configured key"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
// It writes the error response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit), logger)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}
	return true
}
