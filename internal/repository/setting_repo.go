package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/notifyhub/github-relay/internal/domain"
)

// SettingRepository stores destination settings keyed by (mode, id).
// The pgx implementation is in pg_setting_repo.go, the SQLite one in
// sqlite_setting_repo.go. Tests use the in-memory mock.
type SettingRepository interface {
	GetSetting(ctx context.Context, mode domain.Mode, id string) (*domain.Setting, error)
	SaveSetting(ctx context.Context, s *domain.Setting) error
}

func encodeTargets(targets []domain.Target) ([]byte, error) {
	if targets == nil {
		targets = []domain.Target{}
	}
	b, err := json.Marshal(targets)
	if err != nil {
		return nil, fmt.Errorf("encode targets: %w", err)
	}
	return b, nil
}

func decodeTargets(raw []byte) ([]domain.Target, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var targets []domain.Target
	if err := json.Unmarshal(raw, &targets); err != nil {
		return nil, fmt.Errorf("decode targets: %w", err)
	}
	return targets, nil
}

func encodeWorkflows(workflows map[string][]string) ([]byte, error) {
	if workflows == nil {
		workflows = map[string][]string{}
	}
	b, err := json.Marshal(workflows)
	if err != nil {
		return nil, fmt.Errorf("encode workflow events: %w", err)
	}
	return b, nil
}

func decodeWorkflows(raw []byte) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var workflows map[string][]string
	if err := json.Unmarshal(raw, &workflows); err != nil {
		return nil, fmt.Errorf("decode workflow events: %w", err)
	}
	if len(workflows) == 0 {
		return nil, nil
	}
	return workflows, nil
}
