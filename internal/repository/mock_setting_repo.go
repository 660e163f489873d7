package repository

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/notifyhub/github-relay/internal/domain"
)

// MockSettingRepository is a hand-written, in-memory implementation of
// SettingRepository used in unit tests.
type MockSettingRepository struct {
	mu       sync.RWMutex
	settings map[string]*domain.Setting
	gets     map[string]int

	// Optional error override, set in tests to simulate storage failures.
	GetErr error
}

func NewMockSettingRepository() *MockSettingRepository {
	return &MockSettingRepository{
		settings: make(map[string]*domain.Setting),
		gets:     make(map[string]int),
	}
}

func mockKey(mode domain.Mode, id string) string { return string(mode) + "/" + id }

func (m *MockSettingRepository) GetSetting(_ context.Context, mode domain.Mode, id string) (*domain.Setting, error) {
	m.mu.Lock()
	m.gets[mockKey(mode, id)]++
	m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[mockKey(mode, id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	clone.Targets = append([]domain.Target(nil), s.Targets...)
	clone.WorkflowEventToNotify = maps.Clone(s.WorkflowEventToNotify)
	return &clone, nil
}

func (m *MockSettingRepository) SaveSetting(_ context.Context, s *domain.Setting) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	now := time.Now().UTC()
	if existing, ok := m.settings[mockKey(s.Mode, s.ID)]; ok {
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	m.settings[mockKey(s.Mode, s.ID)] = &clone
	return nil
}

// Gets returns how many times GetSetting was called for (mode, id).
func (m *MockSettingRepository) Gets(mode domain.Mode, id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets[mockKey(mode, id)]
}
