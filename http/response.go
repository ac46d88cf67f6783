package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/rookery"
)

// allowedMethods is advertised on every 405 response.
const allowedMethods = "GET, HEAD, PUT, DELETE"

// StatusClientClosedRequest is reported when the client went away before the
// request could be served. Nobody reads the response; it shows up in logs and
// metrics only.
const StatusClientClosedRequest = 499

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	if code == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", allowedMethods)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	code, errCode, message := classify(err)
	logRequestError(code, err)
	WriteError(w, code, errCode, message)
}

// logRequestError logs storage failures at error level. Rejected requests
// and clients that disconnected are only of interest while debugging.
func logRequestError(code int, err error) {
	switch {
	case rookery.IsClientError(err), errors.Is(err, context.Canceled):
		slog.Debug("request rejected", "status", code, "error", err)
	case code == http.StatusInternalServerError:
		slog.Error("request error", "error", err)
	default:
		slog.Warn("request failed", "status", code, "error", err)
	}
}

// classify maps an error to status, error code and client-facing message.
func classify(err error) (int, string, string) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, rookery.ErrNotFound):
		return http.StatusNotFound, "not_found", "Resource not found"
	case errors.Is(err, rookery.ErrInvalidPath):
		return http.StatusBadRequest, "invalid_path", "Invalid path"
	case errors.Is(err, rookery.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, rookery.ErrMethodNotAllowed), errors.Is(err, rookery.ErrNotADirectory):
		return http.StatusMethodNotAllowed, "method_not_allowed", err.Error()
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "payload_too_large", "Upload exceeds the size limit"
	case errors.Is(err, ErrBadSource):
		return http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, rookery.ErrLockTimeout):
		return http.StatusServiceUnavailable, "unavailable", "Resource is busy, retry later"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "Request canceled"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}
