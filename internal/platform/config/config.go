package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the loader binary needs from its environment.
type Config struct {
	// Addr is the HTTP listen address for the load/query API.
	Addr string

	// Database connection settings (PG* variables, libpq-compatible).
	DatabaseURL string

	// RedisURL enables load-event publishing when set.
	RedisURL string

	// ErrorThreshold is the batch validation failure tolerance (0..1).
	ErrorThreshold float64
	// Workers bounds bulk-load parallelism.
	Workers int
	// RetryAttempts bounds the commit retry budget.
	RetryAttempts int
	// RetryBackoff seeds the commit retry's exponential backoff.
	RetryBackoff time.Duration

	// LoaderIdentity is the default loaded_by for versions whose load
	// request does not name a loader.
	LoaderIdentity string

	// ApplySchema runs the embedded DDL on startup. Intended for development
	// and first deployment; migrations own the schema after that.
	ApplySchema bool

	// LogLevel is one of debug/info/warn/error.
	LogLevel string
}

// FromEnv builds the config from environment variables, reading an optional
// .env file first so local development matches production shape.
func FromEnv() (Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg := Config{
		Addr:           getenv("SSTLOAD_ADDR", ":8080"),
		DatabaseURL:    databaseURL(),
		RedisURL:       os.Getenv("SSTLOAD_REDIS_URL"),
		ErrorThreshold: 0.10,
		Workers:        4,
		RetryAttempts:  3,
		RetryBackoff:   time.Second,
		LoaderIdentity: getenv("SSTLOAD_IDENTITY", "sstload"),
		ApplySchema:    os.Getenv("SSTLOAD_APPLY_SCHEMA") == "true",
		LogLevel:       getenv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.ErrorThreshold, err = floatEnv("ERROR_THRESHOLD", cfg.ErrorThreshold); err != nil {
		return Config{}, err
	}
	if cfg.ErrorThreshold < 0 || cfg.ErrorThreshold > 1 {
		return Config{}, fmt.Errorf("ERROR_THRESHOLD must be between 0 and 1")
	}
	if cfg.Workers, err = intEnv("PARALLEL_WORKERS", cfg.Workers); err != nil {
		return Config{}, err
	}
	if cfg.RetryAttempts, err = intEnv("MAX_RETRY_ATTEMPTS", cfg.RetryAttempts); err != nil {
		return Config{}, err
	}
	if cfg.RetryAttempts < 1 {
		return Config{}, fmt.Errorf("MAX_RETRY_ATTEMPTS must be at least 1")
	}
	if ms, err := intEnv("RETRY_BACKOFF_MS", int(cfg.RetryBackoff/time.Millisecond)); err != nil {
		return Config{}, err
	} else {
		cfg.RetryBackoff = time.Duration(ms) * time.Millisecond
	}
	return cfg, nil
}

// databaseURL assembles a libpq connection string from the conventional PG*
// variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getenv("PGUSER", "postgres"),
		os.Getenv("PGPASSWORD"),
		getenv("PGHOST", "localhost"),
		getenv("PGPORT", "5432"),
		getenv("PGDATABASE", "sst"),
		getenv("PGSSLMODE", "require"),
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}
