package provider

import (
	"context"
	"sync"

	"github.com/notifyhub/github-relay/internal/domain"
)

// SentMessage records one call to MockProvider.Send.
type SentMessage struct {
	DestinationID string
	Event         string
	Markdown      domain.Markdown
}

// MockProvider records sends in memory. FailFor makes Send fail for the
// listed message titles.
type MockProvider struct {
	mu      sync.Mutex
	Sent    []SentMessage
	FailFor map[string]error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{FailFor: make(map[string]error)}
}

func (m *MockProvider) Send(_ context.Context, md domain.Markdown, event string, s *domain.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailFor[md.Title]; ok {
		return err
	}
	m.Sent = append(m.Sent, SentMessage{DestinationID: s.ID, Event: event, Markdown: md})
	return nil
}

// Messages returns a copy of the recorded sends.
func (m *MockProvider) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

var _ Provider = (*MockProvider)(nil)
