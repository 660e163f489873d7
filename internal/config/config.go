package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a default; DATABASE_URL is required only for the postgres backend.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Destination settings store
	SettingsBackend string
	DatabaseURL     string
	DBMaxConns      int32
	DBMinConns      int32
	SQLitePath      string
	MigrationsDir   string
	SeedFile        string

	// Chat robot provider
	ProviderTimeout    time.Duration
	RateLimitPerMinute int

	// Batch consumption
	BatchSchedule string
	BatchSize     int
	QueueCapacity int

	// Retry handling
	RetryDelay    time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		SettingsBackend: getEnv("SETTINGS_BACKEND", BackendPostgres),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBMaxConns:      int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:      int32(getInt("DB_MIN_CONNS", 2)),
		SQLitePath:      getEnv("SQLITE_PATH", "data/relay.db"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations"),
		SeedFile:        os.Getenv("SETTINGS_SEED_FILE"),

		ProviderTimeout:    getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 20),

		BatchSchedule: getEnv("BATCH_SCHEDULE", "@every 2s"),
		BatchSize:     getInt("BATCH_SIZE", 100),
		QueueCapacity: getInt("QUEUE_CAPACITY", 1000),

		RetryDelay:    getDuration("RETRY_DELAY", time.Second),
		MaxRetries:    getInt("MAX_RETRIES", 5),
		RetryInterval: getDuration("RETRY_INTERVAL", 500*time.Millisecond),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SettingsBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s backend", BackendSQLite)
		}
	default:
		return fmt.Errorf("SETTINGS_BACKEND must be %q or %q, got %q",
			BackendPostgres, BackendSQLite, c.SettingsBackend)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("QUEUE_CAPACITY must be positive, got %d", c.QueueCapacity)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
