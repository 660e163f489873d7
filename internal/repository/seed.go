package repository

import (
	"context"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/notifyhub/github-relay/internal/domain"
)

// SeedFile is the YAML document accepted by LoadSeedFile:
//
//	destinations:
//	  - id: bot-1
//	    mode: webhook
//	    webhook_secret: s3cret
//	    targets:
//	      - name: team
//	        url: https://oapi.dingtalk.com/robot/send?access_token=...
//	        secret: SEC...
//	        events: [pull_request, pull_request_review]
type SeedFile struct {
	Destinations []domain.Setting `yaml:"destinations"`
}

// LoadSeedFile parses and validates a settings seed file.
func LoadSeedFile(path string) ([]domain.Setting, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i := range f.Destinations {
		if err := f.Destinations[i].Validate(); err != nil {
			return nil, fmt.Errorf("destination %d: %w", i, err)
		}
	}
	return f.Destinations, nil
}

// Seed upserts every setting into repo.
func Seed(ctx context.Context, repo SettingRepository, settings []domain.Setting) error {
	for i := range settings {
		if err := repo.SaveSetting(ctx, &settings[i]); err != nil {
			return fmt.Errorf("seed %s/%s: %w", settings[i].Mode, settings[i].ID, err)
		}
	}
	return nil
}
