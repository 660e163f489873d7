package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
)

// Sender delivers one rendered notification to a destination's chat robots.
type Sender interface {
	Send(ctx context.Context, md domain.Markdown, event string, s *domain.Setting) error
}

// DeliveryStage sends a group's results one after another. A failed send is
// logged and counted; it never stops the remaining results and is never
// retried here.
type DeliveryStage struct {
	sender Sender
	logger *zap.Logger

	onSent   func(event string, latency time.Duration)
	onFailed func(event string)
}

// NewDeliveryStage constructs a stage. onSent and onFailed are optional (nil = no-op).
func NewDeliveryStage(
	sender Sender,
	logger *zap.Logger,
	onSent func(string, time.Duration),
	onFailed func(string),
) *DeliveryStage {
	if onSent == nil {
		onSent = func(string, time.Duration) {}
	}
	if onFailed == nil {
		onFailed = func(string) {}
	}
	return &DeliveryStage{sender: sender, logger: logger, onSent: onSent, onFailed: onFailed}
}

// Deliver sends results in order and reports how many succeeded and failed.
func (d *DeliveryStage) Deliver(ctx context.Context, s *domain.Setting, results []domain.RenderedResult) (sent, failed int) {
	for _, r := range results {
		start := time.Now()
		err := d.send(ctx, s, r)
		elapsed := time.Since(start)

		if err != nil {
			failed++
			d.onFailed(r.EventName)
			d.logger.Warn("notification delivery failed",
				zap.String("destination_id", s.ID),
				zap.String("event", r.EventName),
				zap.String("title", r.Markdown.Title),
				zap.Error(err),
			)
			continue
		}
		sent++
		d.onSent(r.EventName, elapsed)
		d.logger.Debug("notification delivered",
			zap.String("destination_id", s.ID),
			zap.String("event", r.EventName),
			zap.Duration("latency", elapsed),
		)
	}
	return sent, failed
}

func (d *DeliveryStage) send(ctx context.Context, s *domain.Setting, r domain.RenderedResult) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while sending: %v", p)
		}
	}()
	return d.sender.Send(ctx, r.Markdown, r.EventName, s)
}
