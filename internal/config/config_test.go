package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"ocv-diagnostics/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /srv/ocv\n"), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/ocv", c.DataDir)
	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, 0.1, c.Fit.GradientLimit)
	assert.Equal(t, 100, c.Fit.NumStarts)
	assert.Equal(t, 1001, c.Fit.NumPoints)
}

func TestLoad_FitFileMerge(t *testing.T) {
	dir := t.TempDir()
	fitPath := filepath.Join(dir, "fit.yaml")
	require.NoError(t, os.WriteFile(fitPath, []byte("fit:\n  num_starts: 500\n  max_iter: 1000\n"), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "fit_file: fit.yaml\nfit:\n  max_iter: 2000\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	c, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 500, c.Fit.NumStarts)
	assert.Equal(t, 2000, c.Fit.MaxIter, "explicit fit block overrides fit_file")
}

func TestValidate_Bounds(t *testing.T) {
	c := config.Default()
	c.Fit.NumPoints = 50
	assert.Error(t, c.Validate())

	c = config.Default()
	c.Fit.NumStarts = 10000
	assert.Error(t, c.Validate())

	c = config.Default()
	c.Fit.GradientLimit = -1
	assert.Error(t, c.Validate())

	assert.NoError(t, config.Default().Validate())
}
