package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/github"
	"github.com/notifyhub/github-relay/internal/queue"
)

// ForwardedHeaders are the request headers kept with a queued delivery.
var ForwardedHeaders = []string{
	github.HeaderEvent,
	github.HeaderDelivery,
	github.HeaderSignature,
	"X-GitHub-Hook-ID",
	"X-GitHub-Hook-Installation-Target-ID",
	"X-GitHub-Hook-Installation-Target-Type",
	"User-Agent",
	"Content-Type",
}

var destinationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Queue is the producer side of a mode's delivery queue.
type Queue interface {
	Mode() domain.Mode
	Enqueue(destinationID string, payload domain.Payload) (queue.Delivery, error)
	Depth() domain.QueueDepth
}

// IngestService accepts raw GitHub webhook deliveries and places them on the
// queue of their mode. Signature checks happen later in the worker, where the
// destination's secret is known.
type IngestService struct {
	queues map[domain.Mode]Queue
	logger *zap.Logger
}

func NewIngestService(logger *zap.Logger, queues ...Queue) *IngestService {
	s := &IngestService{queues: make(map[domain.Mode]Queue, len(queues)), logger: logger}
	for _, q := range queues {
		s.queues[q.Mode()] = q
	}
	return s
}

// Ingest validates and enqueues one delivery. Enqueueing never blocks, so
// the request context is not consulted.
func (s *IngestService) Ingest(
	_ context.Context,
	mode domain.Mode,
	destinationID string,
	headers map[string]string,
	body []byte,
) (*domain.DeliveryInfo, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}
	q, ok := s.queues[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueNotFound, mode)
	}
	if !destinationIDPattern.MatchString(destinationID) {
		return nil, domain.ErrInvalidID
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, domain.ErrEmptyPayload
	}

	payload := domain.Payload{Headers: headers, Body: body}
	d, err := q.Enqueue(destinationID, payload)
	if err != nil {
		s.logger.Warn("could not enqueue delivery",
			zap.String("mode", string(mode)),
			zap.String("destination_id", destinationID),
			zap.Error(err),
		)
		return nil, err
	}

	info := &domain.DeliveryInfo{
		ID:            d.ID(),
		Mode:          mode,
		DestinationID: destinationID,
		GitHubEvent:   payload.Header(github.HeaderEvent),
		GitHubID:      payload.Header(github.HeaderDelivery),
		EnqueuedAt:    d.EnqueuedAt(),
	}
	s.logger.Debug("delivery enqueued",
		zap.String("delivery_id", info.ID),
		zap.String("mode", string(mode)),
		zap.String("destination_id", destinationID),
		zap.String("event", info.GitHubEvent),
		zap.String("github_delivery", info.GitHubID),
	)
	return info, nil
}

// Depths reports the backlog of every registered queue.
func (s *IngestService) Depths() map[domain.Mode]domain.QueueDepth {
	out := make(map[domain.Mode]domain.QueueDepth, len(s.queues))
	for mode, q := range s.queues {
		out[mode] = q.Depth()
	}
	return out
}
