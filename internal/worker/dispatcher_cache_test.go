package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/github"
	"github.com/notifyhub/github-relay/internal/repository"
	"github.com/notifyhub/github-relay/internal/worker"
)

func TestDispatcherCache_ResolveIsIdempotent(t *testing.T) {
	repo := seededRepo(t, "a")
	cache := worker.NewDispatcherCache(domain.ModeWebhook, repo, nil)

	first, err := cache.Resolve(context.Background(), "a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := cache.Resolve(context.Background(), "a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if first != second {
		t.Error("expected the identical cached entry")
	}
	if first.Receiver.Mode() != domain.ModeWebhook {
		t.Errorf("receiver mode = %s", first.Receiver.Mode())
	}
	if n := repo.Gets(domain.ModeWebhook, "a"); n != 1 {
		t.Errorf("storage consulted %d times, want 1", n)
	}
}

func TestDispatcherCache_IgnoresLaterStorageChanges(t *testing.T) {
	repo := seededRepo(t, "a")
	cache := worker.NewDispatcherCache(domain.ModeWebhook, repo, nil)

	entry, _ := cache.Resolve(context.Background(), "a")

	_ = repo.SaveSetting(context.Background(), &domain.Setting{ID: "a", Mode: domain.ModeWebhook, WebhookSecret: "rotated"})
	again, _ := cache.Resolve(context.Background(), "a")

	if again != entry || again.Setting.WebhookSecret != secret {
		t.Error("cached entry must not be rebuilt after storage changes")
	}
}

func TestDispatcherCache_ConcurrentFirstResolve(t *testing.T) {
	repo := seededRepo(t, "a")
	cache := worker.NewDispatcherCache(domain.ModeWebhook, repo, nil)

	const n = 32
	entries := make([]*worker.Entry, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries[i], _ = cache.Resolve(context.Background(), "a")
		}()
	}
	wg.Wait()

	for i, e := range entries {
		if e == nil || e != entries[0] {
			t.Fatalf("entry %d differs from the first", i)
		}
	}
	if got := repo.Gets(domain.ModeWebhook, "a"); got != 1 {
		t.Errorf("storage consulted %d times, want 1", got)
	}
}

func TestDispatcherCache_Failures(t *testing.T) {
	storageDown := errors.New("connection refused")

	tests := []struct {
		name    string
		mode    domain.Mode
		setup   func(*repository.MockSettingRepository)
		wantErr error
	}{
		{
			name:    "no stored setting",
			mode:    domain.ModeWebhook,
			setup:   func(*repository.MockSettingRepository) {},
			wantErr: domain.ErrConfigMissing,
		},
		{
			name: "empty webhook secret",
			mode: domain.ModeWebhook,
			setup: func(r *repository.MockSettingRepository) {
				_ = r.SaveSetting(context.Background(), &domain.Setting{ID: "x", Mode: domain.ModeWebhook, WebhookSecret: "  "})
			},
			wantErr: domain.ErrSecretMissing,
		},
		{
			name:    "unknown mode",
			mode:    domain.Mode("gitlab"),
			setup:   func(*repository.MockSettingRepository) {},
			wantErr: domain.ErrUnknownMode,
		},
		{
			name:    "storage error",
			mode:    domain.ModeWebhook,
			setup:   func(r *repository.MockSettingRepository) { r.GetErr = storageDown },
			wantErr: storageDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMockSettingRepository()
			tt.setup(repo)
			cache := worker.NewDispatcherCache(tt.mode, repo, nil)

			entry, err := cache.Resolve(context.Background(), "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if entry != nil {
				t.Error("failed resolution must not return an entry")
			}
			if cache.Len() != 0 {
				t.Error("failures must not be cached")
			}
		})
	}
}

func TestDispatcherCache_FailureIsNotCached(t *testing.T) {
	repo := repository.NewMockSettingRepository()
	cache := worker.NewDispatcherCache(domain.ModeApp, repo, nil)

	if _, err := cache.Resolve(context.Background(), "late"); !errors.Is(err, domain.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}

	_ = repo.SaveSetting(context.Background(), &domain.Setting{ID: "late", Mode: domain.ModeApp, WebhookSecret: secret})
	if _, err := cache.Resolve(context.Background(), "late"); err != nil {
		t.Fatalf("setting added after a failure should resolve, got %v", err)
	}
}

func TestDispatcherCache_UsesFactory(t *testing.T) {
	repo := seededRepo(t, "a")
	var gotSecret string
	var gotMode domain.Mode
	factory := func(s string, m domain.Mode) (*github.Receiver, error) {
		gotSecret, gotMode = s, m
		return github.NewReceiver(s, m)
	}
	cache := worker.NewDispatcherCache(domain.ModeWebhook, repo, factory)

	if _, err := cache.Resolve(context.Background(), "a"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gotSecret != secret || gotMode != domain.ModeWebhook {
		t.Errorf("factory called with (%q, %q)", gotSecret, gotMode)
	}
}
