package db

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate runs all pending PostgreSQL up-migrations from dir/postgres.
// It is idempotent: already-applied migrations are skipped.
func Migrate(databaseURL, dir string) error {
	// golang-migrate's pgx/v5 driver expects the scheme "pgx5://".
	var rest string
	switch {
	case strings.HasPrefix(databaseURL, "postgresql://"):
		rest = databaseURL[len("postgresql://"):]
	case strings.HasPrefix(databaseURL, "postgres://"):
		rest = databaseURL[len("postgres://"):]
	default:
		rest = databaseURL
	}
	return up(filepath.Join(dir, "postgres"), "pgx5://"+rest)
}

// MigrateSQLite runs all pending SQLite up-migrations from dir/sqlite
// against the database file at path.
func MigrateSQLite(path, dir string) error {
	return up(filepath.Join(dir, "sqlite"), "sqlite://"+path)
}

func up(sourceDir, databaseURL string) error {
	m, err := migrate.New("file://"+filepath.ToSlash(sourceDir), databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
