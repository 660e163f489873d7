package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/api/handler"
	apimw "github.com/notifyhub/github-relay/internal/api/middleware"
	"github.com/notifyhub/github-relay/internal/service"
)

// MaxBodyBytes caps webhook request bodies.
const MaxBodyBytes = 1 << 20

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.IngestService,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(MaxBodyBytes))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	wh := handler.NewWebhookHandler(svc, logger)
	mh := handler.NewMetricsHandler(svc)
	hh := handler.NewHealthHandler()

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/github/{mode}/{destinationID}", wh.Receive)
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
