package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, BackendPebble, cfg.Backend)
	require.Equal(t, "always", cfg.Fsync)
	require.Equal(t, 1024, cfg.PersistQueueSize)
	require.NoError(t, cfg.Validate())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "ledger.json",
		`{"backend":"memory","requireIdempotencyKey":true,"logLevel":"debug"}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.Backend)
	require.True(t, cfg.RequireIdempotencyKey)
	require.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep defaults.
	require.Equal(t, 1024, cfg.PersistQueueSize)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "ledger.toml", "backend = \"redis\"\nredis_addr = \"127.0.0.1:6379\"\nfsync = \"interval\"\nfsync_interval_ms = 20\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendRedis, cfg.Backend)
	require.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	require.Equal(t, "interval", cfg.Fsync)
	require.Equal(t, 20, cfg.FsyncIntervalMs)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "ledger.yaml", "backend: postgres\npostgresDsn: postgres://localhost/ledger\nmetricsAddr: \":9100\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendPostgres, cfg.Backend)
	require.Equal(t, "postgres://localhost/ledger", cfg.PostgresDSN)
	require.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("LEDGER_REQUIRE_IDEMPOTENCY_KEY", "true")
	t.Setenv("LEDGER_PERSIST_QUEUE_SIZE", "64")
	t.Setenv("LEDGER_LOG_FORMAT", "json")

	cfg := Default()
	require.NoError(t, FromEnv(&cfg))
	require.Equal(t, BackendMemory, cfg.Backend)
	require.True(t, cfg.RequireIdempotencyKey)
	require.Equal(t, 64, cfg.PersistQueueSize)
	require.Equal(t, "json", cfg.LogFormat)
}

func TestValidateRejects(t *testing.T) {
	cfg := Default()
	cfg.Backend = "etcd"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Backend = BackendRedis
	require.Error(t, cfg.Validate(), "redis without address")

	cfg = Default()
	cfg.Fsync = "sometimes"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DataDir = ""
	require.Error(t, cfg.Validate())
}
