package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/notifyhub/github-relay/internal/domain"
	"github.com/notifyhub/github-relay/internal/github"
	"github.com/notifyhub/github-relay/internal/repository"
)

// Entry is the resolved state for one destination: a receiver bound to its
// webhook secret and the setting it was built from. Entries are never
// mutated after they are cached.
type Entry struct {
	Receiver *github.Receiver
	Setting  *domain.Setting
}

// ReceiverFactory builds a receiver for a secret and mode.
type ReceiverFactory func(secret string, mode domain.Mode) (*github.Receiver, error)

// DispatcherCache memoizes destination entries for the lifetime of the
// process. Once an id resolves, later storage changes are not observed.
// Failed resolutions are not cached and are attempted again next time.
type DispatcherCache struct {
	mode        domain.Mode
	repo        repository.SettingRepository
	newReceiver ReceiverFactory

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group
}

// NewDispatcherCache creates a cache for destinations of mode. A nil factory
// defaults to github.NewReceiver.
func NewDispatcherCache(mode domain.Mode, repo repository.SettingRepository, factory ReceiverFactory) *DispatcherCache {
	if factory == nil {
		factory = github.NewReceiver
	}
	return &DispatcherCache{
		mode:        mode,
		repo:        repo,
		newReceiver: factory,
		entries:     make(map[string]*Entry),
	}
}

func (c *DispatcherCache) Mode() domain.Mode { return c.mode }

// Resolve returns the cached entry for id, building it on first use.
//
// Errors: domain.ErrConfigMissing when no setting is stored,
// domain.ErrSecretMissing when the setting has no webhook secret,
// domain.ErrUnknownMode when the cache's mode is not recognized.
func (c *DispatcherCache) Resolve(ctx context.Context, id string) (*Entry, error) {
	if e, ok := c.lookup(id); ok {
		return e, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		if e, ok := c.lookup(id); ok {
			return e, nil
		}
		e, err := c.build(ctx, id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = e
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Len reports how many destinations are cached.
func (c *DispatcherCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *DispatcherCache) lookup(id string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

func (c *DispatcherCache) build(ctx context.Context, id string) (*Entry, error) {
	if !c.mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, c.mode)
	}

	setting, err := c.repo.GetSetting(ctx, c.mode, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("destination %s: %w", id, domain.ErrConfigMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("load setting %s: %w", id, err)
	}
	if strings.TrimSpace(setting.WebhookSecret) == "" {
		return nil, fmt.Errorf("destination %s: %w", id, domain.ErrSecretMissing)
	}

	receiver, err := c.newReceiver(setting.WebhookSecret, c.mode)
	if err != nil {
		return nil, fmt.Errorf("destination %s: %w", id, err)
	}
	return &Entry{Receiver: receiver, Setting: setting}, nil
}

// skipReason labels a resolve failure for metrics.
func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfigMissing):
		return "config_missing"
	case errors.Is(err, domain.ErrSecretMissing):
		return "secret_missing"
	case errors.Is(err, domain.ErrUnknownMode):
		return "unknown_mode"
	}
	return "lookup_failed"
}
