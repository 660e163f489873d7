package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Promoter moves deliveries whose retry delay has elapsed back to ready.
type Promoter interface {
	PromoteDue(now time.Time) int
}

// RetryWorker ticks every interval and promotes due retries so the next
// batch picks them up.
type RetryWorker struct {
	q        Promoter
	interval time.Duration
	logger   *zap.Logger
}

func NewRetryWorker(q Promoter, interval time.Duration, logger *zap.Logger) *RetryWorker {
	return &RetryWorker{q: q, interval: interval, logger: logger}
}

// Run ticks every interval and promotes any due retries.
// Stops cleanly when ctx is cancelled.
func (rw *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("retry worker started", zap.Duration("interval", rw.interval))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("retry worker stopping")
			return
		case now := <-ticker.C:
			if n := rw.q.PromoteDue(now); n > 0 {
				rw.logger.Debug("promoted due retries", zap.Int("count", n))
			}
		}
	}
}
