package handler

import (
	"net/http"

	"github.com/notifyhub/github-relay/internal/domain"
)

// DepthReporter reports the backlog of every delivery queue.
type DepthReporter interface {
	Depths() map[domain.Mode]domain.QueueDepth
}

// MetricsHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics are available at /metrics and are separate from
// this endpoint.
type MetricsHandler struct {
	queues DepthReporter
}

func NewMetricsHandler(queues DepthReporter) *MetricsHandler {
	return &MetricsHandler{queues: queues}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time queue depth snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	depths := h.queues.Depths()
	total := 0
	byMode := make(map[string]domain.QueueDepth, len(depths))
	for mode, d := range depths {
		byMode[string(mode)] = d
		total += d.Ready + d.Delayed
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": byMode,
		"total":       total,
	})
}
