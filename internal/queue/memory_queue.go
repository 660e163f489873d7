package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
)

// MemoryQueue is an in-process delivery queue for one destination mode.
//
// Ready deliveries sit in a buffered channel so Enqueue never blocks the HTTP
// handler. Retried deliveries are parked in a delayed list until the retry
// worker promotes them; a delivery retried more than maxRetries times is
// dropped and logged.
type MemoryQueue struct {
	mode       domain.Mode
	ready      chan *message
	maxRetries int
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	delayed []*message

	acked   atomic.Int64
	dropped atomic.Int64
}

func New(mode domain.Mode, capacity, maxRetries int, logger *zap.Logger) *MemoryQueue {
	return &MemoryQueue{
		mode:       mode,
		ready:      make(chan *message, capacity),
		maxRetries: maxRetries,
		logger:     logger.With(zap.String("mode", string(mode))),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (q *MemoryQueue) Mode() domain.Mode { return q.mode }

// Enqueue places a new delivery on the ready channel.
// It is non-blocking: a full queue returns ErrQueueFull immediately.
func (q *MemoryQueue) Enqueue(destinationID string, payload domain.Payload) (Delivery, error) {
	m := &message{
		id:            uuid.New().String(),
		destinationID: destinationID,
		payload:       payload,
		enqueuedAt:    q.now(),
		q:             q,
	}
	select {
	case q.ready <- m:
		return m, nil
	default:
		return nil, domain.ErrQueueFull
	}
}

// Drain removes up to limit ready deliveries without blocking.
func (q *MemoryQueue) Drain(limit int) []Delivery {
	var batch []Delivery
	for len(batch) < limit {
		select {
		case m := <-q.ready:
			batch = append(batch, m)
		default:
			return batch
		}
	}
	return batch
}

// PromoteDue moves delayed deliveries whose retry time has passed back onto
// the ready channel. Deliveries that do not fit stay parked for the next call.
func (q *MemoryQueue) PromoteDue(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	promoted := 0
	kept := q.delayed[:0]
	for _, m := range q.delayed {
		if m.retryAt.After(now) {
			kept = append(kept, m)
			continue
		}
		select {
		case q.ready <- m:
			promoted++
		default:
			kept = append(kept, m)
		}
	}
	clear(q.delayed[len(kept):])
	q.delayed = kept
	return promoted
}

// Depth reports how many deliveries are ready and how many wait for a retry.
func (q *MemoryQueue) Depth() domain.QueueDepth {
	q.mu.Lock()
	delayed := len(q.delayed)
	q.mu.Unlock()
	return domain.QueueDepth{Ready: len(q.ready), Delayed: delayed}
}

// Acked and Dropped are lifetime counters, mainly for tests and diagnostics.
func (q *MemoryQueue) Acked() int64   { return q.acked.Load() }
func (q *MemoryQueue) Dropped() int64 { return q.dropped.Load() }

func (q *MemoryQueue) schedule(m *message, delay time.Duration) {
	if m.attempts >= q.maxRetries {
		q.dropped.Add(1)
		q.logger.Warn("delivery dropped after max retries",
			zap.String("delivery_id", m.id),
			zap.String("destination_id", m.destinationID),
			zap.Int("attempts", m.attempts+1),
		)
		return
	}

	next := &message{
		id:            m.id,
		destinationID: m.destinationID,
		payload:       m.payload,
		enqueuedAt:    m.enqueuedAt,
		attempts:      m.attempts + 1,
		q:             q,
		retryAt:       q.now().Add(delay),
	}

	q.mu.Lock()
	q.delayed = append(q.delayed, next)
	q.mu.Unlock()
}
