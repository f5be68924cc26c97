package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngxmon/ngxmon/pkg/engine"
)

func TestEngineConfigMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
access_log = "/srv/logs/access.log"
window = 500
refresh_seconds = 5
top = 9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c := runCmd()
	require.NoError(t, c.Flags().Set("top", "3"))

	cfg := engine.DefaultConfig()
	cfg.TopN = 3

	cfg, err := engineConfig(c, nil, cfg, path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/logs/access.log", cfg.AccessLog)
	assert.Equal(t, 500, cfg.Window)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 3, cfg.TopN, "command-line flags beat the config file")
	assert.Equal(t, 1000, cfg.ErrorWindow, "built-in default survives an unset file value")
}

func TestEngineConfigPositionalArgWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`access_log = "/srv/logs/access.log"`), 0644))

	cfg, err := engineConfig(runCmd(), []string{"/tmp/other.log"}, engine.DefaultConfig(), path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.log", cfg.AccessLog)
}

func TestEngineConfigMissingFile(t *testing.T) {
	_, err := engineConfig(runCmd(), nil, engine.DefaultConfig(), filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
