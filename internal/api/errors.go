package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/p-arndt/kastell/internal/sandbox"
)

// Error codes returned in API responses
const (
	ErrCodeSandboxNotFound     = "SANDBOX_NOT_FOUND"
	ErrCodeNameConflict        = "NAME_CONFLICT"
	ErrCodeSandboxNotRunning   = "SANDBOX_NOT_RUNNING"
	ErrCodeImageNotFound       = "IMAGE_NOT_FOUND"
	ErrCodeResourceLimit       = "RESOURCE_LIMIT"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeCommandFailed       = "COMMAND_FAILED"
	ErrCodePathNotFound        = "PATH_NOT_FOUND"
	ErrCodeMountError          = "MOUNT_ERROR"
	ErrCodeMountNotFound       = "MOUNT_NOT_FOUND"
	ErrCodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// APIError is the structured error response body.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr APIError
	statusCode := http.StatusInternalServerError

	switch {
	case errors.Is(err, sandbox.ErrSandboxNotFound):
		apiErr = APIError{Code: ErrCodeSandboxNotFound, Message: err.Error()}
		statusCode = http.StatusNotFound
	case errors.Is(err, sandbox.ErrNameConflict):
		apiErr = APIError{Code: ErrCodeNameConflict, Message: err.Error()}
		statusCode = http.StatusConflict
	case errors.Is(err, sandbox.ErrNotRunning):
		apiErr = APIError{Code: ErrCodeSandboxNotRunning, Message: err.Error()}
		statusCode = http.StatusConflict
	case errors.Is(err, sandbox.ErrImageNotFound):
		apiErr = APIError{Code: ErrCodeImageNotFound, Message: err.Error()}
		statusCode = http.StatusBadRequest
	case errors.Is(err, sandbox.ErrResourceLimit):
		apiErr = APIError{Code: ErrCodeResourceLimit, Message: err.Error()}
		statusCode = http.StatusTooManyRequests
	case errors.Is(err, sandbox.ErrTimeout):
		apiErr = APIError{Code: ErrCodeTimeout, Message: err.Error()}
		statusCode = http.StatusGatewayTimeout
	case errors.Is(err, sandbox.ErrPathNotFound):
		apiErr = APIError{Code: ErrCodePathNotFound, Message: err.Error()}
		statusCode = http.StatusBadRequest
	case errors.Is(err, sandbox.ErrMountNotFound):
		apiErr = APIError{Code: ErrCodeMountNotFound, Message: err.Error()}
		statusCode = http.StatusNotFound
	case errors.Is(err, sandbox.ErrMount):
		apiErr = APIError{Code: ErrCodeMountError, Message: err.Error()}
		statusCode = http.StatusBadRequest
	case errors.Is(err, sandbox.ErrUnsupportedLanguage):
		apiErr = APIError{Code: ErrCodeUnsupportedLanguage, Message: err.Error()}
		statusCode = http.StatusBadRequest
	case errors.Is(err, sandbox.ErrCommandFailed):
		apiErr = APIError{Code: ErrCodeCommandFailed, Message: err.Error()}
		statusCode = http.StatusBadGateway
	default:
		apiErr = APIError{Code: ErrCodeInternalError, Message: err.Error()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErr)
}

func writeValidationError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(APIError{Code: ErrCodeInvalidRequest, Message: message})
}

func writeUnauthorizedError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(APIError{Code: ErrCodeUnauthorized, Message: message})
}
