// Package render turns a single GitHub event into chat markdown.
package render

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/github"
)

// ErrSkipped marks events that are recognized but produce no notification.
// Callers treat it as success.
var ErrSkipped = errors.New("render: event skipped")

const defaultContentLimit = 300

type templateFunc func(evt github.Event, s *domain.Setting) (domain.Markdown, error)

var templates = map[string]templateFunc{
	"issues.opened":                       renderIssue,
	"issues.closed":                       renderIssue,
	"issues.reopened":                     renderIssue,
	"issues.edited":                       renderIssue,
	"pull_request.opened":                 renderPullRequest,
	"pull_request.reopened":               renderPullRequest,
	"pull_request.closed":                 renderPullRequest,
	"pull_request.edited":                 renderPullRequest,
	"pull_request.ready_for_review":       renderPullRequest,
	"pull_request_review.submitted":       renderReview,
	"pull_request_review.edited":          renderReview,
	"pull_request_review.dismissed":       renderReview,
	"pull_request_review_comment.created": renderReviewComment,
	"discussion.created":                  renderDiscussion,
	"discussion.edited":                   renderDiscussion,
	"discussion.deleted":                  renderDiscussion,
	"discussion_comment.created":          renderDiscussionComment,
	"discussion_comment.deleted":          renderDiscussionComment,
	"issue_comment.created":               renderIssueComment,
	"issue_comment.deleted":               renderIssueComment,
	"release.published":                   renderRelease,
	"release.released":                    renderRelease,
	"workflow_run.completed":              renderWorkflowRun,
}

// Supported lists every "event.action" pair with a template.
func Supported() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Render produces the markdown for evt. Events without a template return
// ErrSkipped.
func Render(_ context.Context, evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	tpl, ok := templates[evt.FullName()]
	if !ok {
		return domain.Markdown{}, fmt.Errorf("%w: no template for %s", ErrSkipped, evt.FullName())
	}
	if evt.Payload == nil || evt.Payload.Repository == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no repository", evt.FullName())
	}
	return tpl(evt, s)
}

func title(repo *github.Repository, subject, action string) string {
	return fmt.Sprintf("[%s] %s %s", repo.Name, subject, action)
}

// text lays out the common notification shape: a heading linking the
// repository, then an optional body.
func text(repo *github.Repository, heading, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#### %s %s\n", repoLink(repo), heading)
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

func link(label, url string) string {
	if url == "" {
		return label
	}
	return fmt.Sprintf("[%s](%s)", label, url)
}

func repoLink(repo *github.Repository) string {
	return link(repo.FullName, repo.HTMLURL)
}

func userLink(u *github.User) string {
	if u == nil {
		return "someone"
	}
	return link(u.Login, u.HTMLURL)
}

// quote truncates body to the setting's content limit and renders it as a
// markdown block quote.
func quote(body string, s *domain.Setting) string {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return ""
	}
	limit := defaultContentLimit
	if s != nil && s.ContentLimit > 0 {
		limit = s.ContentLimit
	}
	if runes := []rune(body); len(runes) > limit {
		body = string(runes[:limit]) + "..."
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func joinBlocks(blocks ...string) string {
	var kept []string
	for _, b := range blocks {
		if b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}
