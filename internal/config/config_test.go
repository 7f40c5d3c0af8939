package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 0.05, cfg.Editor.MinZoom)
	assert.Equal(t, 8.0, cfg.Editor.MaxZoom)
	assert.Equal(t, 8.0, cfg.Editor.GridSize)
	assert.Equal(t, 1440.0, cfg.Editor.CanvasWidth)
	assert.Equal(t, 6.0, cfg.Editor.SnapThreshold)
	assert.Equal(t, 100, cfg.Editor.HistoryDepth)
	assert.Equal(t, 0.7, cfg.Analyzer.ContainmentOverlap)
	assert.Equal(t, 30, cfg.Analyzer.ButtonMaxChars)
	assert.Equal(t, "@every 30s", cfg.Autosave.Schedule)
	assert.Equal(t, 40, cfg.Autosave.KeepRevisions)
	assert.Equal(t, "pagecraft.db", filepath.Base(cfg.Storage.Path))
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"empty storage", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"zero zoom", func(c *Config) { c.Editor.MinZoom = 0 }, "zoom bounds"},
		{"inverted zoom", func(c *Config) { c.Editor.MinZoom = 9 }, "must be below max_zoom"},
		{"zero grid", func(c *Config) { c.Editor.GridSize = 0 }, "grid_size"},
		{"zero threshold", func(c *Config) { c.Editor.SnapThreshold = -1 }, "snap_threshold"},
		{"no history", func(c *Config) { c.Editor.HistoryDepth = 0 }, "history_depth"},
		{"negative canvas", func(c *Config) { c.Editor.CanvasWidth = -1 }, "canvas_width"},
		{"overlap above one", func(c *Config) { c.Analyzer.ContainmentOverlap = 1.2 }, "containment_overlap"},
		{"overlap zero", func(c *Config) { c.Analyzer.ContainmentOverlap = 0 }, "containment_overlap"},
		{"keep none", func(c *Config) { c.Autosave.KeepRevisions = 0 }, "keep_revisions"},
		{"bad schedule", func(c *Config) {
			c.Autosave.Enabled = true
			c.Autosave.Schedule = "every now and then"
		}, "schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewConfigFromViper_YAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	yaml := []byte(`
editor:
  grid_size: 16
  snap_threshold: 4
analyzer:
  full_width: 0.75
autosave:
  enabled: true
  schedule: "*/5 * * * *"
`)
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 16.0, cfg.Editor.GridSize)
	assert.Equal(t, 4.0, cfg.Editor.SnapThreshold)
	assert.Equal(t, 0.75, cfg.Analyzer.FullWidth)
	assert.Equal(t, 0.7, cfg.Analyzer.ContainmentOverlap, "unset keys keep defaults")
	assert.True(t, cfg.Autosave.Enabled)
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("editor.history_depth", 0)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("export:\n  title: Docs\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Docs", cfg.Export.Title)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("env override", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PAGECRAFT_EDITOR_GRID_SIZE", "24")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 24.0, cfg.Editor.GridSize)
	})
}
