package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jhartig/kapsel/internal/dispatch"
	"github.com/jhartig/kapsel/internal/registry"
	"github.com/jhartig/kapsel/internal/stage"
)

// Error codes returned in API responses
const (
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// APIError represents a structured API error response
type APIError struct {
	Code    string                 `json:"error_code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeAPIError writes a structured error response with appropriate HTTP status
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr APIError
	statusCode := http.StatusInternalServerError

	// Map known errors to structured responses
	switch {
	case errors.Is(err, registry.ErrNotFound):
		apiErr = APIError{
			Code:    ErrCodeSessionNotFound,
			Message: err.Error(),
		}
		statusCode = http.StatusNotFound

	case errors.Is(err, dispatch.ErrNoFile),
		errors.Is(err, dispatch.ErrNoFiles),
		errors.Is(err, dispatch.ErrNoTestFiles),
		errors.Is(err, dispatch.ErrBadScriptType),
		errors.Is(err, stage.ErrUnsafePath):
		apiErr = APIError{
			Code:    ErrCodeInvalidRequest,
			Message: err.Error(),
		}
		statusCode = http.StatusBadRequest

	default:
		apiErr = APIError{
			Code:    ErrCodeInternalError,
			Message: err.Error(),
		}
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErr)
}

// writeValidationError writes a 400 Bad Request with validation details
func writeValidationError(w http.ResponseWriter, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(APIError{
		Code:    ErrCodeInvalidRequest,
		Message: message,
		Details: details,
	})
}

// writeUnauthorizedError writes a 401 Unauthorized error
func writeUnauthorizedError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}
