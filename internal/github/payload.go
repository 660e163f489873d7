package github

import (
	"strconv"

	"github.com/notifyhub/github-relay/internal/domain"
)

// Payload holds the subset of GitHub webhook fields the templates and the
// composer need. Unknown fields are ignored.
type Payload struct {
	Action       string        `json:"action"`
	Repository   *Repository   `json:"repository"`
	Sender       *User         `json:"sender"`
	Installation *Installation `json:"installation"`
	Issue        *Issue        `json:"issue"`
	PullRequest  *PullRequest  `json:"pull_request"`
	Review       *Review       `json:"review"`
	Comment      *Comment      `json:"comment"`
	Discussion   *Discussion   `json:"discussion"`
	Release      *Release      `json:"release"`
	Workflow     *Workflow     `json:"workflow"`
	WorkflowRun  *WorkflowRun  `json:"workflow_run"`
}

type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type User struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

type Installation struct {
	ID int64 `json:"id"`
}

type Issue struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	State       string    `json:"state"`
	HTMLURL     string    `json:"html_url"`
	User        *User     `json:"user"`
	PullRequest *struct{} `json:"pull_request"`
}

type Ref struct {
	Ref string `json:"ref"`
}

type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Merged  bool   `json:"merged"`
	Draft   bool   `json:"draft"`
	User    *User  `json:"user"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

type Review struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	User    *User  `json:"user"`
}

type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	Path    string `json:"path"`
	User    *User  `json:"user"`
}

type Category struct {
	Name string `json:"name"`
}

type Discussion struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	HTMLURL  string    `json:"html_url"`
	User     *User     `json:"user"`
	Category *Category `json:"category"`
}

type Release struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	HTMLURL    string `json:"html_url"`
	Prerelease bool   `json:"prerelease"`
}

type Workflow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type WorkflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	HeadBranch string `json:"head_branch"`
	RunNumber  int    `json:"run_number"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
}

// CompositeKey derives the grouping key for related events. Numbers that are
// absent from the payload serialize as empty segments.
func (p *Payload) CompositeKey(prefix string) domain.CompositeKey {
	k := domain.CompositeKey{Prefix: prefix}
	if p.Repository != nil {
		k.Repo = p.Repository.FullName
	}
	if p.PullRequest != nil {
		k.PullRequest = strconv.Itoa(p.PullRequest.Number)
	}
	if p.Discussion != nil {
		k.Discussion = strconv.Itoa(p.Discussion.Number)
	}
	if p.Sender != nil {
		k.Sender = p.Sender.Login
	}
	return k
}
