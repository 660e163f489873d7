package render

import (
	"fmt"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/github"
)

func renderIssue(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	issue := p.Issue
	if issue == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no issue", evt.FullName())
	}

	ref := fmt.Sprintf("issue #%d", issue.Number)
	var body string
	if evt.Action == "opened" || evt.Action == "edited" {
		body = quote(issue.Body, s)
	}

	return domain.Markdown{
		Title: title(p.Repository, ref, evt.Action),
		Text: text(p.Repository,
			fmt.Sprintf("%s %s %s", userLink(p.Sender), evt.Action, link(ref, issue.HTMLURL)),
			joinBlocks("**"+issue.Title+"**", body)),
	}, nil
}

func renderPullRequest(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	pr := p.PullRequest
	if pr == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no pull_request", evt.FullName())
	}

	action := evt.Action
	switch {
	case action == "closed" && pr.Merged:
		action = "merged"
	case action == "ready_for_review":
		action = "marked ready for review"
	}

	ref := fmt.Sprintf("pull request #%d", pr.Number)
	var body string
	switch evt.Action {
	case "opened", "edited", "ready_for_review":
		body = quote(pr.Body, s)
	}

	branches := ""
	if pr.Head.Ref != "" && pr.Base.Ref != "" {
		branches = fmt.Sprintf("`%s` → `%s`", pr.Head.Ref, pr.Base.Ref)
	}

	return domain.Markdown{
		Title: title(p.Repository, ref, action),
		Text: text(p.Repository,
			fmt.Sprintf("%s %s %s", userLink(p.Sender), action, link(ref, pr.HTMLURL)),
			joinBlocks("**"+pr.Title+"**", branches, body)),
	}, nil
}

func renderReview(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	review, pr := p.Review, p.PullRequest
	if review == nil || pr == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no review", evt.FullName())
	}

	// Comment-only reviews arrive together with their review comments,
	// which carry the content.
	if evt.Action == "submitted" && review.State == "commented" {
		return domain.Markdown{}, fmt.Errorf("%w: comment-only review", ErrSkipped)
	}

	action := evt.Action
	if review.State != "" {
		action = review.State
	}
	switch action {
	case "changes_requested":
		action = "requested changes"
	case "dismissed":
		action = "dismissed their stale review"
	}

	ref := fmt.Sprintf("pull request #%d", pr.Number)
	return domain.Markdown{
		Title: title(p.Repository, "review", action),
		Text: text(p.Repository,
			fmt.Sprintf("%s %s on %s", userLink(p.Sender), link(action, review.HTMLURL), link(ref, pr.HTMLURL)),
			joinBlocks("**"+pr.Title+"**", quote(review.Body, s))),
	}, nil
}

func renderReviewComment(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	comment, pr := p.Comment, p.PullRequest
	if comment == nil || pr == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no comment", evt.FullName())
	}

	ref := fmt.Sprintf("pull request #%d", pr.Number)
	where := link("comment", comment.HTMLURL)
	if comment.Path != "" {
		where = link("`"+comment.Path+"`", comment.HTMLURL)
	}
	body := quote(comment.Body, s)

	return domain.Markdown{
		Title: title(p.Repository, "review comment", "created"),
		Text: text(p.Repository,
			fmt.Sprintf("%s commented on %s in %s", userLink(p.Sender), where, link(ref, pr.HTMLURL)),
			body),
		CompactText: joinBlocks(fmt.Sprintf("%s commented on %s", userLink(p.Sender), where), body),
	}, nil
}

func renderDiscussion(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	d := p.Discussion
	if d == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no discussion", evt.FullName())
	}

	ref := fmt.Sprintf("discussion #%d", d.Number)
	category := ""
	if d.Category != nil && d.Category.Name != "" {
		category = "Category: " + d.Category.Name
	}
	var body string
	if evt.Action != "deleted" {
		body = quote(d.Body, s)
	}

	return domain.Markdown{
		Title: title(p.Repository, ref, evt.Action),
		Text: text(p.Repository,
			fmt.Sprintf("%s %s %s", userLink(p.Sender), evt.Action, link(ref, d.HTMLURL)),
			joinBlocks("**"+d.Title+"**", category, body)),
	}, nil
}

func renderDiscussionComment(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	if p.Comment == nil || p.Discussion == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no comment", evt.FullName())
	}
	ref := fmt.Sprintf("discussion #%d", p.Discussion.Number)
	return renderComment(evt, s, ref, p.Discussion.HTMLURL), nil
}

func renderIssueComment(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	if p.Comment == nil || p.Issue == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no comment", evt.FullName())
	}
	location := "issue"
	if p.Issue.PullRequest != nil {
		location = "pull request"
	}
	ref := fmt.Sprintf("%s #%d", location, p.Issue.Number)
	return renderComment(evt, s, ref, p.Issue.HTMLURL), nil
}

func renderComment(evt github.Event, s *domain.Setting, ref, refURL string) domain.Markdown {
	p := evt.Payload
	heading := fmt.Sprintf("%s %s %s on %s",
		userLink(p.Sender), evt.Action, link("comment", p.Comment.HTMLURL), link(ref, refURL))
	body := quote(p.Comment.Body, s)

	return domain.Markdown{
		Title:       title(p.Repository, "comment "+evt.Action+" on", ref),
		Text:        text(p.Repository, heading, body),
		CompactText: joinBlocks(fmt.Sprintf("%s %s %s", userLink(p.Sender), evt.Action, link("comment", p.Comment.HTMLURL)), body),
	}
}

func renderRelease(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	r := p.Release
	if r == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no release", evt.FullName())
	}

	name := r.Name
	if name == "" {
		name = r.TagName
	}
	kind := "release"
	if r.Prerelease {
		kind = "pre-release"
	}

	return domain.Markdown{
		Title: title(p.Repository, kind+" "+r.TagName, evt.Action),
		Text: text(p.Repository,
			fmt.Sprintf("%s %s %s %s", userLink(p.Sender), evt.Action, kind, link(name, r.HTMLURL)),
			quote(r.Body, s)),
	}, nil
}

// renderWorkflowRun announces completed runs of allowlisted workflows only.
// Runs without a workflow file path are dynamic (Dependabot, Pages) and are
// always dropped.
func renderWorkflowRun(evt github.Event, s *domain.Setting) (domain.Markdown, error) {
	p := evt.Payload
	run := p.WorkflowRun
	if run == nil {
		return domain.Markdown{}, fmt.Errorf("render %s: payload has no workflow_run", evt.FullName())
	}
	if run.Path == "" {
		return domain.Markdown{}, fmt.Errorf("%w: workflow run has no path", ErrSkipped)
	}
	name := run.Name
	if p.Workflow != nil && p.Workflow.Name != "" {
		name = p.Workflow.Name
	}
	if s == nil || !s.NotifiesWorkflow(p.Repository.FullName, name) {
		return domain.Markdown{}, fmt.Errorf("%w: workflow %q of %s is not configured", ErrSkipped, name, p.Repository.FullName)
	}

	conclusion := run.Conclusion
	if conclusion == "" {
		conclusion = run.Status
	}
	details := "Name: " + name
	if run.HeadBranch != "" {
		details += "\nBranch: `" + run.HeadBranch + "`"
	}

	return domain.Markdown{
		Title: title(p.Repository, "workflow", evt.Action),
		Text: text(p.Repository,
			fmt.Sprintf("%s run %s (%s)", link("workflow", run.HTMLURL), conclusion, userLink(p.Sender)),
			joinBlocks(details, link("Detail", run.HTMLURL))),
	}, nil
}
