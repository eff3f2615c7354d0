package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shotscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.Reader.TargetFPS)
	assert.Equal(t, 200, cfg.Reader.QueueCapacity)
	assert.Equal(t, 0.08, cfg.Detector.RelativeThreshold)
	assert.Equal(t, 20, cfg.Detector.MinCells)
	assert.Equal(t, 7, cfg.Detector.MinShotLength)
	assert.Equal(t, 100*time.Millisecond, cfg.Reader.PollInterval)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/shots
reader:
  target_fps: 12.5
  queue_capacity: 50
detector:
  min_shot_len: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/shots", cfg.CacheDir)
	assert.Equal(t, 12.5, cfg.Reader.TargetFPS)
	assert.Equal(t, 50, cfg.Reader.QueueCapacity)
	assert.Equal(t, 3, cfg.Detector.MinShotLength)
	// untouched values keep their defaults
	assert.Equal(t, 20, cfg.Detector.MinCells)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "reader:\n  target_fps: 10\n")
	t.Setenv("SHOTSCAN_READER_TARGET_FPS", "30")
	t.Setenv("SHOTSCAN_CACHE_DIR", "/var/cache/shotscan")
	t.Setenv("SHOTSCAN_DETECTOR_MIN_CELLS", "16")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.Reader.TargetFPS)
	assert.Equal(t, "/var/cache/shotscan", cfg.CacheDir)
	assert.Equal(t, 16, cfg.Detector.MinCells)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "detector:\n  min_cells: 65\n")
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, "reader:\n  target_fps: 0\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.CacheDir = "/data/cache"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestContextRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.RootDir = "/media"
	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, Default(), FromContext(context.Background()))
}
