package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration written to canescan.yaml")

	data, err := os.ReadFile(filepath.Join(dir, "canescan.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "analysis:")
	assert.Contains(t, string(data), "block_size:")

	_, _, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	custom := filepath.Join(dir, "etc", "field.yaml")
	_, _, err = execute(t, "config", "init", custom)
	require.NoError(t, err)
	assert.FileExists(t, custom)
}

func TestConfigInit_IgnoresBrokenConfig(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "canescan.yaml"), []byte("analysis: [broken"), 0o600))

	_, _, err := execute(t, "config", "init", "other.yaml")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CANESCAN_REMOTE_API_KEY", "secret-key-123")
	cfgFile := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("analysis:\n  block_size: 24\n"), 0o600))

	stdout, _, err := execute(t, "config", "show", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# loaded from "+cfgFile)
	assert.Contains(t, stdout, "block_size: 24")
	assert.NotContains(t, stdout, "secret-key-123")
	assert.Contains(t, stdout, "********")

	stdout, _, err = execute(t, "config", "show", "--show-secrets")
	require.NoError(t, err)
	assert.Contains(t, stdout, "secret-key-123")
	assert.NotContains(t, stdout, "# loaded from")
}

func TestConfigPaths(t *testing.T) {
	dir := isolate(t)
	stdout, _, err := execute(t, "config", "paths")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, ".", lines[0])
	assert.Equal(t, dir, lines[1])
	assert.Equal(t, filepath.Join(dir, "config", "canescan"), lines[2])
	assert.Equal(t, "/etc/canescan", lines[3])
}
