package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB and by the mongo client adapter in main.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	pinger Pinger
}

func NewHealthHandler(p Pinger) *HealthHandler {
	return &HealthHandler{pinger: p}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "store": "ok"}
	code := http.StatusOK

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			slog.WarnContext(r.Context(), "Store ping failed", slog.Any("error", err))
			status["status"] = "degraded"
			status["store"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	if err := writeJSON(w, code, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
