package worker_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/github"
	"github.com/notifyhub/github-relay/internal/queue"
)

const secret = "s3cret"

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeDelivery records how it was settled.
type fakeDelivery struct {
	id         string
	dest       string
	payload    domain.Payload
	enqueuedAt time.Time

	mu      sync.Mutex
	acks    int
	retries []time.Duration
}

func (d *fakeDelivery) ID() string              { return d.id }
func (d *fakeDelivery) DestinationID() string   { return d.dest }
func (d *fakeDelivery) Payload() domain.Payload { return d.payload }
func (d *fakeDelivery) EnqueuedAt() time.Time   { return d.enqueuedAt }

func (d *fakeDelivery) Ack() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acks++
}

func (d *fakeDelivery) Retry(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retries = append(d.retries, delay)
}

func (d *fakeDelivery) settled() (acks int, retries []time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acks, append([]time.Duration(nil), d.retries...)
}

// signedPayload builds a delivery payload signed with key. The GitHub delivery
// header carries id so renderers can tell deliveries apart.
func signedPayload(key, event, id, body string) domain.Payload {
	return domain.Payload{
		Headers: map[string]string{
			github.HeaderEvent:     event,
			github.HeaderDelivery:  id,
			github.HeaderSignature: github.SignatureHeader(key, []byte(body)),
		},
		Body: []byte(body),
	}
}

func issueBody(title string) string {
	return fmt.Sprintf(`{"action":"opened",
		"repository":{"name":"hello","full_name":"octo/hello","html_url":"https://github.com/octo/hello"},
		"sender":{"login":"mona"},
		"issue":{"number":1,"title":%q,"html_url":"https://github.com/octo/hello/issues/1"}}`, title)
}

func reviewBody(state string) string {
	return fmt.Sprintf(`{"action":"submitted",
		"repository":{"name":"hello","full_name":"octo/hello"},
		"sender":{"login":"mona"},
		"pull_request":{"number":42,"title":"Add feature"},
		"review":{"id":7,"state":%q,"body":"looks good"}}`, state)
}

func reviewCommentBody(body string) string {
	return fmt.Sprintf(`{"action":"created",
		"repository":{"name":"hello","full_name":"octo/hello"},
		"sender":{"login":"mona"},
		"pull_request":{"number":42,"title":"Add feature"},
		"comment":{"id":9,"body":%q,"path":"main.go"}}`, body)
}

func discussionBody(title string) string {
	return fmt.Sprintf(`{"action":"created",
		"repository":{"name":"hello","full_name":"octo/hello"},
		"sender":{"login":"mona"},
		"discussion":{"number":3,"title":%q,"body":"what do you think?"}}`, title)
}

func discussionCommentBody(login, body string) string {
	return fmt.Sprintf(`{"action":"created",
		"repository":{"name":"hello","full_name":"octo/hello"},
		"sender":{"login":%q},
		"discussion":{"number":3,"title":"Roadmap"},
		"comment":{"id":11,"body":%q}}`, login, body)
}

// delivery builds a fake delivery for dest signed with the shared secret,
// enqueued offset after base.
func delivery(id, dest, event, body string, offset time.Duration) *fakeDelivery {
	return &fakeDelivery{
		id:         id,
		dest:       dest,
		payload:    signedPayload(secret, event, id, body),
		enqueuedAt: base.Add(offset),
	}
}

func batchOf(ds ...*fakeDelivery) []queue.Delivery {
	out := make([]queue.Delivery, len(ds))
	for i, d := range ds {
		out[i] = d
	}
	return out
}

// titleRender renders each event with the GitHub delivery id as its title.
func titleRender(_ context.Context, evt github.Event, _ *domain.Setting) (domain.Markdown, error) {
	return domain.Markdown{Title: evt.DeliveryID, Text: evt.FullName() + " " + evt.DeliveryID}, nil
}

// recordingSender records every send and fails for titles in fail.
type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	tried []string
	fail  map[string]bool
}

func (s *recordingSender) Send(_ context.Context, md domain.Markdown, _ string, _ *domain.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tried = append(s.tried, md.Title)
	if s.fail[md.Title] {
		return fmt.Errorf("robot rejected %s", md.Title)
	}
	s.sent = append(s.sent, md.Title)
	return nil
}

func (s *recordingSender) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}
