package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Backend names a durable persistence backend.
type Backend string

const (
	BackendPebble   Backend = "pebble"
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

// Config is the top-level configuration loaded from file and env.
type Config struct {
	DataDir string  `json:"dataDir" toml:"data_dir" yaml:"dataDir" env:"DATA_DIR"`
	Backend Backend `json:"backend" toml:"backend" yaml:"backend" env:"BACKEND"`

	RedisAddr   string `json:"redisAddr" toml:"redis_addr" yaml:"redisAddr" env:"REDIS_ADDR"`
	RedisKey    string `json:"redisKey" toml:"redis_key" yaml:"redisKey" env:"REDIS_KEY"`
	PostgresDSN string `json:"postgresDsn" toml:"postgres_dsn" yaml:"postgresDsn" env:"POSTGRES_DSN"`

	// Fsync is "always", "interval" or "never"; applies to the pebble
	// backend only.
	Fsync           string `json:"fsync" toml:"fsync" yaml:"fsync" env:"FSYNC"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" toml:"fsync_interval_ms" yaml:"fsyncIntervalMs" env:"FSYNC_INTERVAL_MS"`

	// RequireIdempotencyKey rejects keyless appends instead of warning.
	RequireIdempotencyKey bool `json:"requireIdempotencyKey" toml:"require_idempotency_key" yaml:"requireIdempotencyKey" env:"REQUIRE_IDEMPOTENCY_KEY"`

	PersistQueueSize int `json:"persistQueueSize" toml:"persist_queue_size" yaml:"persistQueueSize" env:"PERSIST_QUEUE_SIZE"`

	MetricsAddr string `json:"metricsAddr" toml:"metrics_addr" yaml:"metricsAddr" env:"METRICS_ADDR"`

	LogLevel  string `json:"logLevel" toml:"log_level" yaml:"logLevel" env:"LOG_LEVEL"`
	LogFormat string `json:"logFormat" toml:"log_format" yaml:"logFormat" env:"LOG_FORMAT"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		Backend:          BackendPebble,
		RedisKey:         "ledger:events",
		Fsync:            "always",
		FsyncIntervalMs:  5,
		PersistQueueSize: 1024,
		MetricsAddr:      ":9464",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads configuration from a JSON, TOML or YAML file (by extension),
// overlaid on defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// FromEnv overlays LEDGER_* environment variables onto cfg.
func FromEnv(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: "LEDGER_"})
}

// Validate checks values that would only fail deep inside the runtime.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPebble:
		if c.DataDir == "" {
			return fmt.Errorf("config: pebble backend requires dataDir")
		}
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis backend requires redisAddr")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: postgres backend requires postgresDsn")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("config: unknown fsync mode %q", c.Fsync)
	}
	if c.PersistQueueSize <= 0 {
		return fmt.Errorf("config: persistQueueSize must be positive")
	}
	return nil
}
