package worker_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/worker"
)

type panickingSender struct{ calls int }

func (p *panickingSender) Send(_ context.Context, md domain.Markdown, _ string, _ *domain.Setting) error {
	p.calls++
	if md.Title == "explode" {
		panic("robot client bug")
	}
	return nil
}

func TestDeliveryStage_RecoversAndContinues(t *testing.T) {
	sender := &panickingSender{}
	var failedEvents []string
	var sent int
	stage := worker.NewDeliveryStage(sender, zap.NewNop(),
		func(string, time.Duration) { sent++ },
		func(event string) { failedEvents = append(failedEvents, event) },
	)

	results := []domain.RenderedResult{
		{EventName: "issues.opened", Markdown: domain.Markdown{Title: "one"}},
		{EventName: "release.published", Markdown: domain.Markdown{Title: "explode"}},
		{EventName: "issues.closed", Markdown: domain.Markdown{Title: "three"}},
	}
	okCount, failCount := stage.Deliver(context.Background(), &domain.Setting{ID: "a"}, results)

	if sender.calls != 3 {
		t.Errorf("sender called %d times, want 3", sender.calls)
	}
	if okCount != 2 || failCount != 1 || sent != 2 {
		t.Errorf("sent=%d failed=%d hook=%d", okCount, failCount, sent)
	}
	if len(failedEvents) != 1 || failedEvents[0] != "release.published" {
		t.Errorf("failed hook = %v", failedEvents)
	}
}
