package domain

import (
	"slices"
	"time"
)

// Mode selects how a destination receives GitHub deliveries.
type Mode string

const (
	// ModeApp destinations are GitHub App installations; every delivery
	// carries an installation reference.
	ModeApp Mode = "app"
	// ModeWebhook destinations are plain repository or organization webhooks.
	ModeWebhook Mode = "webhook"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeApp, ModeWebhook:
		return true
	}
	return false
}

// Target is one chat robot a destination posts to.
type Target struct {
	Name   string   `json:"name" yaml:"name"`
	URL    string   `json:"url" yaml:"url"`
	Secret string   `json:"secret,omitempty" yaml:"secret"`
	Events []string `json:"events,omitempty" yaml:"events"`
}

// Accepts reports whether the target wants notifications for the event.
// An empty event list accepts everything.
func (t Target) Accepts(event string) bool {
	return len(t.Events) == 0 || slices.Contains(t.Events, event)
}

// Setting is the stored configuration for one destination.
type Setting struct {
	ID            string   `json:"id" yaml:"id"`
	Mode          Mode     `json:"mode" yaml:"mode"`
	WebhookSecret string   `json:"webhook_secret" yaml:"webhook_secret"`
	AppID         int64    `json:"app_id,omitempty" yaml:"app_id"`
	ContentLimit  int      `json:"content_limit,omitempty" yaml:"content_limit"`
	Targets       []Target `json:"targets" yaml:"targets"`
	// WorkflowEventToNotify maps a repository full name to the workflow
	// names whose completed runs are announced. Other runs are ignored.
	WorkflowEventToNotify map[string][]string `json:"workflow_event_to_notify,omitempty" yaml:"workflow_event_to_notify"`
	CreatedAt             time.Time           `json:"created_at" yaml:"-"`
	UpdatedAt             time.Time           `json:"updated_at" yaml:"-"`
}

// Validate checks the fields required to store a setting. A missing webhook
// secret is allowed here; the worker reports it when the destination is used.
func (s *Setting) Validate() error {
	if s.ID == "" {
		return ErrInvalidID
	}
	if !s.Mode.IsValid() {
		return ErrUnknownMode
	}
	return nil
}

// NotifiesWorkflow reports whether runs of workflow in repo are announced.
func (s *Setting) NotifiesWorkflow(repo, workflow string) bool {
	return slices.Contains(s.WorkflowEventToNotify[repo], workflow)
}
