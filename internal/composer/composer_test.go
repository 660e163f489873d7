package composer_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/notifyhub/github-relay/internal/composer"
	"github.com/notifyhub/github-relay/internal/domain"
)

var key = domain.CompositeKey{Prefix: domain.PrefixReview, Repo: "octo/hello", PullRequest: "7", Sender: "mona"}

func view(event, name string) domain.RenderedResult {
	return domain.RenderedResult{
		EventName: event,
		Markdown:  domain.Markdown{Title: name + " title", Text: name + " text"},
	}
}

func subs(n int) []domain.RenderedResult {
	out := make([]domain.RenderedResult, n)
	for i := range out {
		out[i] = view("pull_request_review_comment", fmt.Sprintf("S%d", i+1))
	}
	return out
}

func TestAccumulator_MainOnly(t *testing.T) {
	acc := composer.NewAccumulator(key)
	main := view("pull_request_review", "M")
	acc.SetMain(main)

	got := acc.Results()
	if len(got) != 1 || got[0] != main {
		t.Fatalf("expected [M] unchanged, got %+v", got)
	}
}

func TestAccumulator_MainWithTwentyFiveSubs(t *testing.T) {
	acc := composer.NewAccumulator(key)
	main := view("pull_request_review", "M")
	acc.SetMain(main)
	for _, s := range subs(25) {
		acc.AddSub(s)
	}

	got := acc.Results()
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}

	wantCounts := []int{10, 10, 5}
	for i, r := range got {
		if r.Markdown.Title != main.Markdown.Title {
			t.Fatalf("notification %d: expected title %q, got %q", i, main.Markdown.Title, r.Markdown.Title)
		}
		if r.EventName != main.EventName {
			t.Fatalf("notification %d: expected event %q, got %q", i, main.EventName, r.EventName)
		}
		parts := strings.Split(r.Markdown.Text, composer.Separator)
		if parts[0] != main.Markdown.Text {
			t.Fatalf("notification %d: expected main text first, got %q", i, parts[0])
		}
		if len(parts)-1 != wantCounts[i] {
			t.Fatalf("notification %d: expected %d sub views, got %d", i, wantCounts[i], len(parts)-1)
		}
	}

	last := strings.Split(got[2].Markdown.Text, composer.Separator)
	if last[1] != "S21 text" || last[5] != "S25 text" {
		t.Fatalf("expected S21..S25 in the last chunk, got %v", last[1:])
	}
}

func TestAccumulator_CompactTextPreferred(t *testing.T) {
	acc := composer.NewAccumulator(key)
	acc.SetMain(view("pull_request_review", "M"))
	s := view("pull_request_review_comment", "S1")
	s.Markdown.CompactText = "S1 compact"
	acc.AddSub(s)
	acc.AddSub(view("pull_request_review_comment", "S2"))

	got := acc.Results()
	want := "M text" + composer.Separator + "S1 compact" + composer.Separator + "S2 text"
	if len(got) != 1 || got[0].Markdown.Text != want {
		t.Fatalf("expected %q, got %+v", want, got)
	}
	if got[0].Markdown.CompactText != "" {
		t.Fatal("merged notification should not carry compact text")
	}
}

func TestAccumulator_SingleSubUnchanged(t *testing.T) {
	acc := composer.NewAccumulator(key)
	s := view("pull_request_review_comment", "S1")
	s.Markdown.CompactText = "compact"
	acc.AddSub(s)

	got := acc.Results()
	if len(got) != 1 || got[0] != s {
		t.Fatalf("expected [S1] unmodified, got %+v", got)
	}
}

func TestAccumulator_ElevenSubsPromoteFirst(t *testing.T) {
	acc := composer.NewAccumulator(key)
	all := subs(11)
	for _, s := range all {
		acc.AddSub(s)
	}

	got := acc.Results()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}

	first := strings.Split(got[0].Markdown.Text, composer.Separator)
	if got[0].Markdown.Title != "S1 title" || first[0] != "S1 text" {
		t.Fatalf("expected S1 promoted as main, got %+v", got[0])
	}
	if len(first)-1 != 9 || first[9] != "S10 text" {
		t.Fatalf("expected S2..S10 merged (9 entries), got %v", first[1:])
	}
	if got[1] != all[10] {
		t.Fatalf("expected S11 unmodified, got %+v", got[1])
	}
}

func TestAccumulator_Empty(t *testing.T) {
	if got := composer.NewAccumulator(key).Results(); len(got) != 0 {
		t.Fatalf("expected no results, got %+v", got)
	}
}

func TestAccumulator_LastMainWins(t *testing.T) {
	acc := composer.NewAccumulator(key)
	if acc.SetMain(view("pull_request_review", "first")) {
		t.Fatal("first SetMain should not report a replacement")
	}
	if !acc.SetMain(view("pull_request_review", "second")) {
		t.Fatal("second SetMain should report a replacement")
	}
	got := acc.Results()
	if len(got) != 1 || got[0].Markdown.Title != "second title" {
		t.Fatalf("expected second main view, got %+v", got)
	}
}

func TestSet_FirstSeenOrder(t *testing.T) {
	set := composer.NewSet()
	a := domain.CompositeKey{Prefix: domain.PrefixDiscussion, Repo: "octo/a", Discussion: "1", Sender: "x"}
	b := domain.CompositeKey{Prefix: domain.PrefixReview, Repo: "octo/b", PullRequest: "2", Sender: "y"}

	set.Get(b).SetMain(view("pull_request_review", "B"))
	set.Get(a).AddSub(view("discussion_comment", "A1"))
	set.Get(b).AddSub(view("pull_request_review_comment", "B1"))

	if set.Len() != 2 {
		t.Fatalf("expected 2 accumulators, got %d", set.Len())
	}
	if set.Get(b).Key() != b {
		t.Fatal("expected Get to return the existing accumulator")
	}

	got := set.Results()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Markdown.Title != "B title" || got[1].Markdown.Title != "A1 title" {
		t.Fatalf("unexpected order: %q, %q", got[0].Markdown.Title, got[1].Markdown.Title)
	}
}
