package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness probe endpoint.
type HealthHandler struct {
	started time.Time
}

func NewHealthHandler() *HealthHandler { return &HealthHandler{started: time.Now()} }

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.started).Truncate(time.Second).String(),
	})
}
