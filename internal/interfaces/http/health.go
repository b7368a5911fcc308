package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
)

type CursorReader interface {
	Get(ctx context.Context) (int64, error)
}

type HealthHandler struct {
	cursor CursorReader
	logger *slog.Logger
}

func NewHealthHandler(cursor CursorReader, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{cursor: cursor, logger: loggerOrDefault(logger)}
}

type HealthResponse struct {
	API                 string `json:"api"`
	LastSyncedTimestamp string `json:"lastSyncedTimestamp"`
}

// HandleHealth reports the stored sync cursor. A store that cannot be read
// makes the service unhealthy.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	cursor, err := h.cursor.Get(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{API: "error", LastSyncedTimestamp: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{API: "ok", LastSyncedTimestamp: strconv.FormatInt(cursor, 10)})
}
