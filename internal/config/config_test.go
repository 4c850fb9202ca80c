package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint8(8), cfg.Depth)
	require.Equal(t, 0, cfg.HashMB)
	require.Equal(t, 0, cfg.Threads)
	require.Equal(t, "", cfg.TablePath)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AGENTSMITH_DEPTH", "6")
	t.Setenv("AGENTSMITH_THREADS", "4")
	t.Setenv("AGENTSMITH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint8(6), cfg.Depth)
	require.Equal(t, 4, cfg.Threads)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := "depth: 5\nhash_mb: 32\ntable_path: /tmp/agentsmith-tt\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agentsmith.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint8(5), cfg.Depth)
	require.Equal(t, 32, cfg.HashMB)
	require.Equal(t, "/tmp/agentsmith-tt", cfg.TablePath)
}

func TestLoadRejectsZeroDepth(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AGENTSMITH_DEPTH", "0")

	_, err := Load()
	require.Error(t, err)
}
