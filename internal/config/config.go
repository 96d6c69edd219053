// Package config loads and saves planr's YAML configuration file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDropDelay      = 50 * time.Millisecond
	defaultResizeDebounce = 300 * time.Millisecond
	defaultPixelsPerDay   = 100
	defaultHistoryLimit   = 200
)

type LogConfig struct {
	// File receives log records; relative paths resolve against the config
	// directory. "-" disables logging.
	File   string `yaml:"file"`
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DragConfig struct {
	DropDelay      time.Duration `yaml:"drop_delay"`
	ResizeDebounce time.Duration `yaml:"resize_debounce"`
	PixelsPerDay   int           `yaml:"pixels_per_day"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
	// Auto rewrites Dir/planr-events.<format> after every create or update.
	Auto   bool   `yaml:"auto"`
	Format string `yaml:"format"`
}

type Config struct {
	DBPath string    `yaml:"db_path"`
	Log    LogConfig `yaml:"log"`

	// HistoryLimit caps the undo depth; 0 keeps everything.
	HistoryLimit int          `yaml:"history_limit"`
	Drag         DragConfig   `yaml:"drag"`
	Export       ExportConfig `yaml:"export"`

	// MetricsListen serves /metrics and /healthz when set, e.g. "127.0.0.1:9464".
	MetricsListen string `yaml:"metrics_listen,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		DBPath: "planr.db",
		Log: LogConfig{
			File:   "planr.log",
			Level:  "info",
			Format: "text",
		},
		HistoryLimit: defaultHistoryLimit,
		Drag: DragConfig{
			DropDelay:      defaultDropDelay,
			ResizeDebounce: defaultResizeDebounce,
			PixelsPerDay:   defaultPixelsPerDay,
		},
		Export: ExportConfig{
			Dir:    "exports",
			Format: "json",
		},
	}
}

// Normalize fills in missing or invalid values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	switch c.Log.Level = strings.ToLower(c.Log.Level); c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = d.Log.Level
	}
	switch c.Log.Format = strings.ToLower(c.Log.Format); c.Log.Format {
	case "text", "json":
	default:
		c.Log.Format = d.Log.Format
	}
	if c.HistoryLimit < 0 {
		c.HistoryLimit = 0
	}
	if c.Drag.DropDelay < 0 {
		c.Drag.DropDelay = 0
	}
	if c.Drag.ResizeDebounce <= 0 {
		c.Drag.ResizeDebounce = d.Drag.ResizeDebounce
	}
	if c.Drag.PixelsPerDay <= 0 {
		c.Drag.PixelsPerDay = d.Drag.PixelsPerDay
	}
	if c.Export.Dir == "" {
		c.Export.Dir = d.Export.Dir
	}
	switch c.Export.Format = strings.ToLower(c.Export.Format); c.Export.Format {
	case "csv", "json", "ics":
	default:
		c.Export.Format = d.Export.Format
	}
}

// Resolve returns a copy with relative file paths anchored at dir.
func (c Config) Resolve(dir string) Config {
	abs := func(p string) string {
		if p == "" || p == "-" || p == ":memory:" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.DBPath = abs(c.DBPath)
	c.Log.File = abs(c.Log.File)
	c.Export.Dir = abs(c.Export.Dir)
	return c
}

// DefaultPath returns ~/.config/planr/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "planr", "config.yaml"), nil
}

// Load reads the YAML config at path. On first run the default config is
// written there with 0600 permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg atomically via a temp file in the same directory.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".planr-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
