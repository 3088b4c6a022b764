package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultWhenPathMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aicg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \":9090\"\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Port)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Default().MySQL.DSN, cfg.MySQL.DSN, "fields absent from the file keep their defaults")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aicg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mysql:\n  dsn: \"file-dsn\"\n"), 0o644))

	t.Setenv("DATABASE_URL", "env-dsn")
	t.Setenv("WORKER_CONCURRENCY_IMAGE", "11")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-dsn", cfg.MySQL.DSN, "environment variables win over the config file")
	require.Equal(t, 11, cfg.Worker.Image)
	require.True(t, cfg.Tracing.Enabled)
}

func TestApplyEnvIgnoresUnparsableIntegers(t *testing.T) {
	cfg := Default()
	t.Setenv("WORKER_CONCURRENCY_TEXT", "not-a-number")
	applyEnv(cfg)
	require.Equal(t, Default().Worker.Text, cfg.Worker.Text)
}
