package db_test

import (
	"testing"

	"github.com/notifyhub/github-relay/internal/config"
	"github.com/notifyhub/github-relay/internal/db"
)

func TestPoolConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantApp string
	}{
		{"default application name", "postgres://relay:pw@db.internal:5432/relay", db.ApplicationName},
		{"application name from URL", "postgres://relay:pw@db.internal:5432/relay?application_name=ops", "ops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{DatabaseURL: tt.url, DBMaxConns: 4, DBMinConns: 1}
			poolCfg, err := db.PoolConfig(cfg)
			if err != nil {
				t.Fatalf("PoolConfig: %v", err)
			}
			if got := poolCfg.ConnConfig.RuntimeParams["application_name"]; got != tt.wantApp {
				t.Errorf("application_name = %q, want %q", got, tt.wantApp)
			}
			if poolCfg.MaxConns != 4 || poolCfg.MinConns != 1 {
				t.Errorf("conns = %d/%d, want 4/1", poolCfg.MaxConns, poolCfg.MinConns)
			}
			if poolCfg.ConnConfig.Database != "relay" {
				t.Errorf("database = %q", poolCfg.ConnConfig.Database)
			}
		})
	}
}

func TestPoolConfig_InvalidURL(t *testing.T) {
	if _, err := db.PoolConfig(&config.Config{DatabaseURL: "postgres://relay@db.internal:notaport/relay"}); err == nil {
		t.Fatal("expected parse error")
	}
}
