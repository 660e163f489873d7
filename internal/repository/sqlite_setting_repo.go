package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/notifyhub/github-relay/internal/domain"
)

type sqliteSettingRepository struct {
	db *sql.DB
}

// NewSQLiteSettingRepository returns a SettingRepository backed by SQLite.
// Timestamps are stored as RFC 3339 text.
func NewSQLiteSettingRepository(db *sql.DB) SettingRepository {
	return &sqliteSettingRepository{db: db}
}

func (r *sqliteSettingRepository) GetSetting(ctx context.Context, mode domain.Mode, id string) (*domain.Setting, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, mode, webhook_secret, app_id, content_limit, targets, workflow_events, created_at, updated_at
		FROM destination_settings WHERE mode = ? AND id = ?`, string(mode), id)

	var (
		s                    domain.Setting
		targets, workflows   string
		createdAt, updatedAt string
	)
	err := row.Scan(&s.ID, &s.Mode, &s.WebhookSecret, &s.AppID, &s.ContentLimit, &targets, &workflows, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	if s.Targets, err = decodeTargets([]byte(targets)); err != nil {
		return nil, err
	}
	if s.WorkflowEventToNotify, err = decodeWorkflows([]byte(workflows)); err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &s, nil
}

func (r *sqliteSettingRepository) SaveSetting(ctx context.Context, s *domain.Setting) error {
	if err := s.Validate(); err != nil {
		return err
	}
	targets, err := encodeTargets(s.Targets)
	if err != nil {
		return err
	}
	workflows, err := encodeWorkflows(s.WorkflowEventToNotify)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO destination_settings
			(id, mode, webhook_secret, app_id, content_limit, targets, workflow_events, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (mode, id) DO UPDATE SET
			webhook_secret  = excluded.webhook_secret,
			app_id          = excluded.app_id,
			content_limit   = excluded.content_limit,
			targets         = excluded.targets,
			workflow_events = excluded.workflow_events,
			updated_at      = excluded.updated_at`,
		s.ID, string(s.Mode), s.WebhookSecret, s.AppID, s.ContentLimit, string(targets), string(workflows), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
