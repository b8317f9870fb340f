package report

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
)

// Pinger reports whether the PDF backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the receipt PDF backend status.
type Handler struct {
	backend Pinger
	logger  *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(backend Pinger, logger *slog.Logger) *Handler {
	return &Handler{backend: backend, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pdf/health", h.pdfHealth)
}

func (h *Handler) pdfHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	start := time.Now()
	err := h.backend.Ping(ctx)
	body := map[string]any{
		"backend":    "gotenberg",
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("receipt pdf backend unavailable", slog.Any("error", err))
		}
		body["status"] = "unavailable"
		httpx.JSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	httpx.JSON(w, http.StatusOK, body)
}
