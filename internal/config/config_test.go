package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sandbox_root: /contracts
max_parse_errors: 3
flow:
  max_steps: 500
logging:
  level: debug
  json_format: true
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/contracts", cfg.SandboxRoot)
	require.Equal(t, 3, cfg.MaxParseErrors)
	require.Equal(t, int64(500), cfg.Flow.MaxSteps)
	// Unset keys keep their defaults.
	require.Equal(t, 256, cfg.Flow.MaxDepth)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Logging.JSONFormat)
}

func TestLoadRejectsNegativeErrorCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_parse_errors: -1\n"), 0o644))
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sandbox_root: [\n"), 0o644))
	_, err := config.Load(path)
	require.Error(t, err)
}
