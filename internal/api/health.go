package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/peeragogy/handbook-ai/internal/provider"
)

// healthHandler serves GET /health with per-provider readiness.
type healthHandler struct {
	gateway     *provider.Gateway
	vectorReady bool
	environment string
	startedAt   time.Time
	logger      *slog.Logger
}

func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	services := make(map[string]bool)
	for _, d := range h.gateway.Registry().List() {
		services[d.ID] = h.gateway.Configured(d.ID)
	}
	services["vector"] = h.vectorReady

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"environment": h.environment,
		"services":    services,
	}, h.logger)
}
