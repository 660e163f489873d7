package domain

import (
	"strings"
	"time"
)

// Payload is a raw webhook delivery as received over HTTP.
type Payload struct {
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body"`
}

// Header returns the value of a header, matching the name case-insensitively.
func (p Payload) Header(name string) string {
	if v, ok := p.Headers[name]; ok {
		return v
	}
	for k, v := range p.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Markdown is the rendered form of a single event.
// CompactText, when set, replaces Text if the event is merged under another one.
type Markdown struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	CompactText string `json:"compact_text,omitempty"`
}

// RenderedResult pairs a rendered event with the GitHub event name it came from.
type RenderedResult struct {
	EventName string   `json:"event_name"`
	Markdown  Markdown `json:"markdown"`
}

// EventRole classifies an event for composition. The set is closed:
// every switch over EventRole must handle all five values.
type EventRole int

const (
	RoleOther EventRole = iota
	RoleRootReview
	RoleReplyReview
	RoleRootDiscussion
	RoleReplyDiscussion
)

const (
	PrefixReview     = "pr_review"
	PrefixDiscussion = "discussion"
)

// RoleOf maps a GitHub event name (without the action) to its role.
func RoleOf(event string) EventRole {
	switch event {
	case "pull_request_review":
		return RoleRootReview
	case "pull_request_review_comment":
		return RoleReplyReview
	case "discussion":
		return RoleRootDiscussion
	case "discussion_comment":
		return RoleReplyDiscussion
	}
	return RoleOther
}

// Prefix returns the composite key prefix for the role's family,
// or "" for RoleOther.
func (r EventRole) Prefix() string {
	switch r {
	case RoleRootReview, RoleReplyReview:
		return PrefixReview
	case RoleRootDiscussion, RoleReplyDiscussion:
		return PrefixDiscussion
	case RoleOther:
		return ""
	}
	return ""
}

func (r EventRole) String() string {
	switch r {
	case RoleRootReview:
		return "root_review"
	case RoleReplyReview:
		return "reply_review"
	case RoleRootDiscussion:
		return "root_discussion"
	case RoleReplyDiscussion:
		return "reply_discussion"
	case RoleOther:
		return "other"
	}
	return "unknown"
}

// CompositeKey identifies a family of related events merged into one notification.
type CompositeKey struct {
	Prefix      string
	Repo        string
	PullRequest string
	Discussion  string
	Sender      string
}

func (k CompositeKey) String() string {
	return strings.Join([]string{k.Prefix, k.Repo, k.PullRequest, k.Discussion, k.Sender}, "#")
}

// QueueDepth is a snapshot of one queue's backlog.
type QueueDepth struct {
	Ready   int `json:"ready"`
	Delayed int `json:"delayed"`
}

// DeliveryInfo is the metadata returned when a webhook is accepted for processing.
type DeliveryInfo struct {
	ID            string    `json:"id"`
	Mode          Mode      `json:"mode"`
	DestinationID string    `json:"destination_id"`
	GitHubEvent   string    `json:"github_event,omitempty"`
	GitHubID      string    `json:"github_delivery,omitempty"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}
