package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planr", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
history_limit: 25
log:
  level: DEBUG
  format: xml
drag:
  drop_delay: 0s
  resize_debounce: 150ms
export:
  auto: true
  format: ICS
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, time.Duration(0), cfg.Drag.DropDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Drag.ResizeDebounce)
	assert.Equal(t, defaultPixelsPerDay, cfg.Drag.PixelsPerDay)
	assert.True(t, cfg.Export.Auto)
	assert.Equal(t, "ics", cfg.Export.Format)
	assert.Equal(t, "planr.db", cfg.DBPath)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("drag: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save("x.yaml", nil))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.MetricsListen = "127.0.0.1:9464"
	cfg.Drag.PixelsPerDay = 80
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "drop_delay: 50ms")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".planr-config-*"))
	assert.Empty(t, leftovers)
}

func TestNormalizeClampsNegatives(t *testing.T) {
	cfg := &Config{HistoryLimit: -3, Drag: DragConfig{DropDelay: -time.Second, PixelsPerDay: -1}}
	cfg.Normalize()
	assert.Zero(t, cfg.HistoryLimit)
	assert.Zero(t, cfg.Drag.DropDelay)
	assert.Equal(t, defaultResizeDebounce, cfg.Drag.ResizeDebounce)
	assert.Equal(t, defaultPixelsPerDay, cfg.Drag.PixelsPerDay)
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.File = "-"
	r := cfg.Resolve("/home/u/.config/planr")

	assert.Equal(t, "/home/u/.config/planr/planr.db", r.DBPath)
	assert.Equal(t, "-", r.Log.File)
	assert.Equal(t, "/home/u/.config/planr/exports", r.Export.Dir)
	assert.Equal(t, "planr.db", cfg.DBPath, "Resolve must not modify the receiver")
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(path))
}
