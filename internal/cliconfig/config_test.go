package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultStorePath(), cfg.StorePath)
	require.Equal(t, "errors", cfg.Log.Debug)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storePath: /tmp/constellation-store.json
log:
  debug: full
  pretty: true
execution:
  includeTimings: true
  includeProvenance: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/constellation-store.json", cfg.StorePath)
	require.Equal(t, "full", cfg.Log.Debug)
	require.True(t, cfg.Log.Pretty)
	require.True(t, cfg.Execution.IncludeTimings)
	require.True(t, cfg.Execution.IncludeProvenance)
	require.False(t, cfg.Execution.IncludeBlockedGraph)
}

func TestLoadRejectsInvalidDebugSetting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  debug: chatty\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storePath: [unterminated\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
