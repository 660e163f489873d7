package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/queue"
)

// Source is the queue side a trigger drains from.
type Source interface {
	Drain(limit int) []queue.Delivery
	Depth() domain.QueueDepth
}

// BatchRunner processes one drained batch.
type BatchRunner interface {
	Run(ctx context.Context, batch []queue.Delivery) []GroupOutcome
}

// Trigger drains up to batchSize deliveries on every tick of a cron schedule
// and hands them to the consumer. A tick that fires while the previous batch
// is still running is skipped.
type Trigger struct {
	src       Source
	consumer  BatchRunner
	batchSize int
	logger    *zap.Logger
	onDepth   func(domain.QueueDepth)

	cron *cron.Cron
	ctx  context.Context
}

// NewTrigger parses schedule (standard cron, optional seconds field, or a
// descriptor such as "@every 2s"). onDepth is optional.
func NewTrigger(
	schedule string,
	src Source,
	consumer BatchRunner,
	batchSize int,
	logger *zap.Logger,
	onDepth func(domain.QueueDepth),
) (*Trigger, error) {
	if onDepth == nil {
		onDepth = func(domain.QueueDepth) {}
	}
	t := &Trigger{
		src:       src,
		consumer:  consumer,
		batchSize: batchSize,
		logger:    logger,
		onDepth:   onDepth,
		ctx:       context.Background(),
	}

	cl := cronLogger{logger.Sugar()}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	t.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := t.cron.AddFunc(schedule, func() { t.Tick(t.ctx) }); err != nil {
		return nil, fmt.Errorf("parse batch schedule %q: %w", schedule, err)
	}
	return t, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a running batch to finish. Cancelling ctx stops new ticks only; a batch
// already drained runs to completion.
func (t *Trigger) Run(ctx context.Context) {
	t.ctx = ctx
	t.cron.Start()
	t.logger.Info("batch trigger started", zap.Int("batch_size", t.batchSize))

	<-ctx.Done()
	t.logger.Info("batch trigger stopping")
	<-t.cron.Stop().Done()
}

// Tick drains one batch and processes it. It is what the schedule invokes.
// Drained deliveries are acknowledged as they are received, so the batch
// runs detached from ctx cancellation and keeps only its values. Sends stay
// bounded by the provider timeout.
func (t *Trigger) Tick(ctx context.Context) {
	batch := t.src.Drain(t.batchSize)
	if len(batch) > 0 {
		t.consumer.Run(context.WithoutCancel(ctx), batch)
	}
	t.onDepth(t.src.Depth())
}

// cronLogger adapts a zap SugaredLogger to cron.Logger. cron reports every
// wake-up at info level, so that is demoted to debug.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
