package domain_test

import (
	"testing"

	"github.com/notifyhub/github-relay/internal/domain"
)

func TestSetting_Validate(t *testing.T) {
	valid := domain.Setting{
		ID:            "bot-1",
		Mode:          domain.ModeWebhook,
		WebhookSecret: "s3cret",
	}

	t.Run("valid setting passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		s := valid
		s.ID = ""
		if err := s.Validate(); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		s := valid
		s.Mode = "gitlab"
		if err := s.Validate(); err != domain.ErrUnknownMode {
			t.Fatalf("expected ErrUnknownMode, got %v", err)
		}
	})

	t.Run("missing secret is accepted for storage", func(t *testing.T) {
		s := valid
		s.WebhookSecret = ""
		if err := s.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestTarget_Accepts(t *testing.T) {
	all := domain.Target{URL: "https://robot"}
	if !all.Accepts("issues") {
		t.Fatal("target without filter should accept every event")
	}

	filtered := domain.Target{URL: "https://robot", Events: []string{"pull_request", "release"}}
	if !filtered.Accepts("release") {
		t.Fatal("expected release to be accepted")
	}
	if filtered.Accepts("issues") {
		t.Fatal("expected issues to be rejected")
	}
}

func TestRoleOf(t *testing.T) {
	tests := []struct {
		event  string
		role   domain.EventRole
		prefix string
	}{
		{"pull_request_review", domain.RoleRootReview, domain.PrefixReview},
		{"pull_request_review_comment", domain.RoleReplyReview, domain.PrefixReview},
		{"discussion", domain.RoleRootDiscussion, domain.PrefixDiscussion},
		{"discussion_comment", domain.RoleReplyDiscussion, domain.PrefixDiscussion},
		{"issues", domain.RoleOther, ""},
		{"issue_comment", domain.RoleOther, ""},
		{"", domain.RoleOther, ""},
	}

	for _, tc := range tests {
		t.Run(tc.event, func(t *testing.T) {
			role := domain.RoleOf(tc.event)
			if role != tc.role {
				t.Fatalf("expected %s, got %s", tc.role, role)
			}
			if role.Prefix() != tc.prefix {
				t.Fatalf("expected prefix %q, got %q", tc.prefix, role.Prefix())
			}
		})
	}
}

func TestCompositeKey_String(t *testing.T) {
	k := domain.CompositeKey{
		Prefix:      domain.PrefixReview,
		Repo:        "octo/hello",
		PullRequest: "42",
		Sender:      "mona",
	}
	if got, want := k.String(), "pr_review#octo/hello#42##mona"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPayload_Header(t *testing.T) {
	p := domain.Payload{Headers: map[string]string{"X-GitHub-Event": "issues"}}
	if got := p.Header("x-github-event"); got != "issues" {
		t.Fatalf("expected case-insensitive match, got %q", got)
	}
	if got := p.Header("X-Missing"); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}
