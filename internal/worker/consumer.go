package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/composer"
	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/github"
	"github.com/notifyhub/github-relay/internal/queue"
	"github.com/notifyhub/github-relay/internal/render"
)

// DefaultRetryDelay is how long a delivery that failed to process waits
// before the queue hands it out again.
const DefaultRetryDelay = time.Second

// RenderFunc turns one event into markdown. Returning an error wrapping
// render.ErrSkipped drops the event without failing the delivery.
type RenderFunc func(ctx context.Context, evt github.Event, s *domain.Setting) (domain.Markdown, error)

// MetricHooks carries the metric callback functions injected by main.
// Every field is optional.
type MetricHooks struct {
	OnReceipt      func(outcome string)
	OnGroupSkipped func(reason string)
	OnSent         func(event string, latency time.Duration)
	OnFailed       func(event string)
	OnBatch        func(size int, elapsed time.Duration)
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnReceipt == nil {
		h.OnReceipt = func(string) {}
	}
	if h.OnGroupSkipped == nil {
		h.OnGroupSkipped = func(string) {}
	}
	if h.OnBatch == nil {
		h.OnBatch = func(int, time.Duration) {}
	}
	return h
}

// Receipt outcomes reported through MetricHooks.OnReceipt.
const (
	OutcomeAcked   = "acked"
	OutcomeRetried = "retried"
)

// ReceiptOutcome is the settled result of one delivery.
type ReceiptOutcome struct {
	DeliveryID string
	Err        error // nil when the delivery was acknowledged

	views []view
}

// Acked reports whether the delivery was acknowledged.
func (o ReceiptOutcome) Acked() bool { return o.Err == nil }

// GroupOutcome is the result of processing every delivery of one destination.
type GroupOutcome struct {
	DestinationID string
	// Err is set when the group was skipped before any delivery was touched.
	Err       error
	Receipts  []ReceiptOutcome
	Delivered int
	Failed    int
}

// view is one rendered event classified for composition.
type view struct {
	role   domain.EventRole
	key    domain.CompositeKey
	result domain.RenderedResult
}

// Consumer processes batches of queued deliveries for one mode.
type Consumer struct {
	mode       domain.Mode
	cache      *DispatcherCache
	render     RenderFunc
	delivery   *DeliveryStage
	retryDelay time.Duration
	logger     *zap.Logger
	hooks      MetricHooks
}

// NewConsumer wires a consumer. A non-positive retryDelay uses DefaultRetryDelay.
func NewConsumer(
	cache *DispatcherCache,
	renderFn RenderFunc,
	sender Sender,
	retryDelay time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Consumer {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	logger = logger.With(zap.String("mode", string(cache.Mode())))
	hooks = hooks.withDefaults()
	return &Consumer{
		mode:       cache.Mode(),
		cache:      cache,
		render:     renderFn,
		delivery:   NewDeliveryStage(sender, logger, hooks.OnSent, hooks.OnFailed),
		retryDelay: retryDelay,
		logger:     logger,
		hooks:      hooks,
	}
}

func (c *Consumer) Mode() domain.Mode { return c.mode }

// Run processes one batch. Deliveries are grouped by destination and the
// groups run concurrently. Within a group every delivery is received
// concurrently and then acknowledged or scheduled for retry; the rendered
// results are merged in enqueue order and delivered sequentially.
// Run never returns an error: every failure is contained in its outcome.
func (c *Consumer) Run(ctx context.Context, batch []queue.Delivery) []GroupOutcome {
	start := time.Now()
	groups := groupByDestination(batch)
	outcomes := make([]GroupOutcome, len(groups))

	var wg sync.WaitGroup
	for i, g := range groups {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = c.runGroup(ctx, g)
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	c.hooks.OnBatch(len(batch), elapsed)

	var acked, retried, delivered, failed, skipped int
	for _, o := range outcomes {
		if o.Err != nil {
			skipped++
		}
		for _, r := range o.Receipts {
			if r.Acked() {
				acked++
			} else {
				retried++
			}
		}
		delivered += o.Delivered
		failed += o.Failed
	}
	c.logger.Info("batch processed",
		zap.Int("deliveries", len(batch)),
		zap.Int("groups", len(groups)),
		zap.Int("groups_skipped", skipped),
		zap.Int("acked", acked),
		zap.Int("retried", retried),
		zap.Int("notifications_sent", delivered),
		zap.Int("notifications_failed", failed),
		zap.Duration("elapsed", elapsed),
	)
	return outcomes
}

type group struct {
	destinationID string
	deliveries    []queue.Delivery
}

// groupByDestination partitions batch by destination id, keeping groups in
// first-seen order and each group sorted by enqueue time.
func groupByDestination(batch []queue.Delivery) []group {
	index := make(map[string]int)
	var groups []group
	for _, d := range batch {
		i, ok := index[d.DestinationID()]
		if !ok {
			i = len(groups)
			index[d.DestinationID()] = i
			groups = append(groups, group{destinationID: d.DestinationID()})
		}
		groups[i].deliveries = append(groups[i].deliveries, d)
	}
	for _, g := range groups {
		slices.SortStableFunc(g.deliveries, func(a, b queue.Delivery) int {
			return a.EnqueuedAt().Compare(b.EnqueuedAt())
		})
	}
	return groups
}

func (c *Consumer) runGroup(ctx context.Context, g group) (out GroupOutcome) {
	out.DestinationID = g.destinationID
	log := c.logger.With(zap.String("destination_id", g.destinationID))

	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while processing group", zap.Any("panic", p))
			if out.Receipts == nil {
				out.Err = fmt.Errorf("panic: %v", p)
			}
		}
	}()

	entry, err := c.cache.Resolve(ctx, g.destinationID)
	if err != nil {
		c.hooks.OnGroupSkipped(skipReason(err))
		if errors.Is(err, domain.ErrUnknownMode) {
			log.Error("internal error resolving destination", zap.Error(err))
		} else {
			log.Warn("skipping destination group", zap.Int("deliveries", len(g.deliveries)), zap.Error(err))
		}
		out.Err = err
		return out
	}

	out.Receipts = make([]ReceiptOutcome, len(g.deliveries))
	var wg sync.WaitGroup
	for i, d := range g.deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Receipts[i] = c.receive(ctx, entry, d, log)
		}()
	}
	wg.Wait()

	results := mergeResults(out.Receipts, log)
	if len(results) == 0 {
		return out
	}
	out.Delivered, out.Failed = c.delivery.Deliver(ctx, entry.Setting, results)
	return out
}

// receive runs one delivery through the receiver and settles it: Ack on
// success, Retry on any error or panic.
func (c *Consumer) receive(ctx context.Context, entry *Entry, d queue.Delivery, log *zap.Logger) (out ReceiptOutcome) {
	out.DeliveryID = d.ID()
	log = log.With(
		zap.String("delivery_id", d.ID()),
		zap.String("github_delivery", d.Payload().Header(github.HeaderDelivery)),
	)

	defer func() {
		if p := recover(); p != nil {
			out.Err = fmt.Errorf("panic while receiving: %v", p)
		}
		if out.Err != nil {
			out.views = nil
			d.Retry(c.retryDelay)
			c.hooks.OnReceipt(OutcomeRetried)
			log.Warn("delivery scheduled for retry", zap.Duration("delay", c.retryDelay), zap.Error(out.Err))
			return
		}
		d.Ack()
		c.hooks.OnReceipt(OutcomeAcked)
	}()

	out.Err = entry.Receiver.Receive(ctx, d.Payload(), func(ctx context.Context, evt github.Event) error {
		md, err := c.render(ctx, evt, entry.Setting)
		if errors.Is(err, render.ErrSkipped) {
			log.Debug("event skipped", zap.String("event", evt.FullName()), zap.Error(err))
			return nil
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", evt.FullName(), err)
		}
		v, err := classify(evt, md)
		if err != nil {
			return err
		}
		out.views = append(out.views, v)
		return nil
	})
	return out
}

func classify(evt github.Event, md domain.Markdown) (view, error) {
	v := view{
		role:   domain.RoleOf(evt.Name),
		result: domain.RenderedResult{EventName: evt.FullName(), Markdown: md},
	}
	switch v.role {
	case domain.RoleOther:
		return v, nil
	case domain.RoleRootReview, domain.RoleReplyReview, domain.RoleRootDiscussion, domain.RoleReplyDiscussion:
		if evt.Payload == nil {
			return view{}, fmt.Errorf("%s event has no payload", evt.Name)
		}
		v.key = evt.Payload.CompositeKey(v.role.Prefix())
		return v, nil
	}
	return view{}, fmt.Errorf("unhandled event role %d", v.role)
}

// mergeResults collects the views of acknowledged receipts, in receipt order,
// into plain results followed by composed results in first-seen key order.
func mergeResults(receipts []ReceiptOutcome, log *zap.Logger) []domain.RenderedResult {
	var plain []domain.RenderedResult
	set := composer.NewSet()

	for _, r := range receipts {
		if !r.Acked() {
			continue
		}
		for _, v := range r.views {
			switch v.role {
			case domain.RoleOther:
				plain = append(plain, v.result)
			case domain.RoleRootReview, domain.RoleRootDiscussion:
				if set.Get(v.key).SetMain(v.result) {
					log.Warn("replacing main view of composite",
						zap.String("key", v.key.String()),
						zap.String("delivery_id", r.DeliveryID),
					)
				}
			case domain.RoleReplyReview, domain.RoleReplyDiscussion:
				set.Get(v.key).AddSub(v.result)
			}
		}
	}
	return append(plain, set.Results()...)
}
