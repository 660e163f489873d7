package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/github-relay/internal/domain"
)

type pgSettingRepository struct {
	pool *pgxpool.Pool
}

// NewPgSettingRepository returns a SettingRepository backed by PostgreSQL.
func NewPgSettingRepository(pool *pgxpool.Pool) SettingRepository {
	return &pgSettingRepository{pool: pool}
}

func (r *pgSettingRepository) GetSetting(ctx context.Context, mode domain.Mode, id string) (*domain.Setting, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, mode, webhook_secret, app_id, content_limit, targets, workflow_events, created_at, updated_at
		FROM destination_settings WHERE mode = $1 AND id = $2`, mode, id)

	var (
		s                  domain.Setting
		targets, workflows []byte
	)
	err := row.Scan(&s.ID, &s.Mode, &s.WebhookSecret, &s.AppID, &s.ContentLimit, &targets, &workflows, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	if s.Targets, err = decodeTargets(targets); err != nil {
		return nil, err
	}
	if s.WorkflowEventToNotify, err = decodeWorkflows(workflows); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *pgSettingRepository) SaveSetting(ctx context.Context, s *domain.Setting) error {
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

	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO destination_settings
			(id, mode, webhook_secret, app_id, content_limit, targets, workflow_events, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		ON CONFLICT (mode, id) DO UPDATE SET
			webhook_secret  = EXCLUDED.webhook_secret,
			app_id          = EXCLUDED.app_id,
			content_limit   = EXCLUDED.content_limit,
			targets         = EXCLUDED.targets,
			workflow_events = EXCLUDED.workflow_events,
			updated_at      = EXCLUDED.updated_at`,
		s.ID, s.Mode, s.WebhookSecret, s.AppID, s.ContentLimit, targets, workflows, now,
	)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
