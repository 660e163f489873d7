package worker

import (
	"context"
	"sync"
)

// Runner is a long-lived background loop that returns once ctx is cancelled.
type Runner interface {
	Run(ctx context.Context)
}

// Pool manages the lifecycle of the background runners of every mode:
// batch triggers and retry workers.
type Pool struct {
	runners []Runner
	wg      sync.WaitGroup
}

func NewPool(runners ...Runner) *Pool {
	return &Pool{runners: runners}
}

// Add registers more runners. It must be called before Start.
func (p *Pool) Add(runners ...Runner) {
	p.runners = append(p.runners, runners...)
}

// Start launches every runner as a goroutine. Cancelling ctx triggers a
// graceful shutdown of the whole pool.
func (p *Pool) Start(ctx context.Context) {
	for _, r := range p.runners {
		p.wg.Add(1)
		go func(r Runner) {
			defer p.wg.Done()
			r.Run(ctx)
		}(r)
	}
}

// Wait blocks until every runner has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}
