package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGameConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultGameConfig().Validate())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.InitialSize = 0
	cfg.BlockHeight = -1
	cfg.Gravity = 5
	cfg.DebrisCap = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "initial_size")
	assert.Contains(t, msg, "block_height")
	assert.Contains(t, msg, "gravity")
	assert.Contains(t, msg, "debris_cap")
}

func TestValidateSpeedOrdering(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.MaxSpeed = cfg.BaseSpeed / 2
	assert.ErrorContains(t, cfg.Validate(), "max_speed")
}

func TestReadConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port":"9000","game":{"debris_cap":4}}`), 0644))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Storage)
	assert.Equal(t, 4, cfg.Game.DebrisCap)
	assert.Equal(t, 3.0, cfg.Game.InitialSize)
	assert.Equal(t, 0.15, cfg.Game.PerfectThreshold)
}

func TestLoadConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := LoadConfig(path)
	require.NotNil(t, cfg)
	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "38870", GetConfigValue("port"))
	assert.Equal(t, DefaultGameConfig(), GetGameConfig())
}
