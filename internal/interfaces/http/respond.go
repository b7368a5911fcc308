package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finmirror/internal/domain/syncer"
	"finmirror/internal/shared/apperrors"
	"finmirror/internal/shared/middleware"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeError maps a service error onto a status code. Messages of the
// classified kinds are shown to the caller; anything else is logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	requestID := middleware.RequestIDFromContext(r.Context())

	switch status {
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "unhandled error",
			"request_id", requestID, "path", r.URL.Path, "error", err)
		writeErrorMessage(w, status, "Internal Server Error")
		return
	case http.StatusUnauthorized:
		writeErrorMessage(w, status, "Invalid Authorization token")
		return
	case http.StatusServiceUnavailable:
		logger.WarnContext(r.Context(), "upstream request failed",
			"request_id", requestID, "path", r.URL.Path, "error", err)
	}
	writeErrorMessage(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, syncer.ErrRemoteAuth):
		return http.StatusUnauthorized
	case errors.Is(err, syncer.ErrRemoteClient):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// allowMethod answers 405 unless the request uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
