package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/service"
)

// WebhookHandler receives GitHub webhook deliveries.
type WebhookHandler struct {
	svc    *service.IngestService
	logger *zap.Logger
}

func NewWebhookHandler(svc *service.IngestService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, logger: logger}
}

// Receive handles POST /api/v1/github/{mode}/{destinationID}
//
// The body is queued untouched together with the GitHub headers; signature
// verification happens when the delivery is processed.
//
// @Summary  Accept a GitHub webhook delivery
// @Tags     github
// @Accept   json
// @Produce  json
// @Param    mode           path  string  true  "app or webhook"
// @Param    destinationID  path  string  true  "destination id"
// @Success  202  {object}  domain.DeliveryInfo
// @Failure  404  {object}  map[string]string
// @Failure  413  {object}  map[string]string
// @Failure  422  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /api/v1/github/{mode}/{destinationID} [post]
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			mapError(w, domain.ErrPayloadTooBig)
			return
		}
		respondError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	headers := make(map[string]string, len(service.ForwardedHeaders))
	for _, name := range service.ForwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	info, err := h.svc.Ingest(r.Context(),
		domain.Mode(chi.URLParam(r, "mode")),
		chi.URLParam(r, "destinationID"),
		headers, body)
	if err != nil {
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, info)
}
