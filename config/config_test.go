package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/eventmesh/dispatcher"
)

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte("batch_size: 25\nidle_interval: 5ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 5*time.Millisecond, cfg.IdleInterval)
}

func TestFromYAML_DefaultsForUnsetFields(t *testing.T) {
	cfg, err := FromYAML([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, dispatcher.DefaultConfig, cfg)
}

func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"batch_size": 3, "idle_interval": "1s"}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.IdleInterval)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 7\n"), 0o644))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, dispatcher.DefaultConfig.IdleInterval, cfg.IdleInterval)
}

func TestFromFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatcher.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, err := FromFile(path)
	assert.ErrorContains(t, err, "unsupported config file extension")
}

func TestInvalidValues(t *testing.T) {
	_, err := FromYAML([]byte("batch_size: -1\n"))
	assert.ErrorContains(t, err, "batch_size")

	_, err = FromYAML([]byte("idle_interval: nonsense\n"))
	assert.ErrorContains(t, err, "idle_interval")

	_, err = FromYAML([]byte("idle_interval: -5ms\n"))
	assert.ErrorContains(t, err, "idle_interval")
}
