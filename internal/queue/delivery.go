package queue

import (
	"sync/atomic"
	"time"

	"github.com/notifyhub/github-relay/internal/domain"
)

// Delivery is one queued webhook delivery borrowed by a consumer for a single
// processing attempt. Exactly one of Ack or Retry takes effect; any later call
// is ignored.
type Delivery interface {
	ID() string
	DestinationID() string
	Payload() domain.Payload
	EnqueuedAt() time.Time
	Ack()
	Retry(delay time.Duration)
}

// message is the MemoryQueue implementation of Delivery.
type message struct {
	id            string
	destinationID string
	payload       domain.Payload
	enqueuedAt    time.Time
	attempts      int

	q       *MemoryQueue
	settled atomic.Bool
	retryAt time.Time
}

func (m *message) ID() string              { return m.id }
func (m *message) DestinationID() string   { return m.destinationID }
func (m *message) Payload() domain.Payload { return m.payload }
func (m *message) EnqueuedAt() time.Time   { return m.enqueuedAt }
func (m *message) Attempts() int           { return m.attempts }

func (m *message) Ack() {
	if !m.settled.CompareAndSwap(false, true) {
		return
	}
	m.q.acked.Add(1)
}

func (m *message) Retry(delay time.Duration) {
	if !m.settled.CompareAndSwap(false, true) {
		return
	}
	m.q.schedule(m, delay)
}
