// Package config loads pagecraft settings from an optional YAML file and
// PAGECRAFT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"pagecraft/internal/analyzer"
)

// EnvPrefix is prepended to every environment override, e.g.
// PAGECRAFT_EDITOR_GRID_SIZE.
const EnvPrefix = "PAGECRAFT"

// Config is the whole application configuration.
type Config struct {
	Logger   LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Storage  StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Editor   EditorConfig    `mapstructure:"editor" yaml:"editor"`
	Analyzer analyzer.Config `mapstructure:"analyzer" yaml:"analyzer"`
	Export   ExportConfig    `mapstructure:"export" yaml:"export"`
	Autosave AutosaveConfig  `mapstructure:"autosave" yaml:"autosave"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// EditorConfig tunes the interactive editing session.
type EditorConfig struct {
	MinZoom       float64 `mapstructure:"min_zoom" yaml:"min_zoom"`
	MaxZoom       float64 `mapstructure:"max_zoom" yaml:"max_zoom"`
	GridSize      float64 `mapstructure:"grid_size" yaml:"grid_size"`
	SnapThreshold float64 `mapstructure:"snap_threshold" yaml:"snap_threshold"`
	HistoryDepth  int     `mapstructure:"history_depth" yaml:"history_depth"`
	MinDrawSize   float64 `mapstructure:"min_draw_size" yaml:"min_draw_size"`
	// CanvasWidth is the page artboard top-level drags snap to. Zero turns
	// artboard snapping off for them.
	CanvasWidth float64 `mapstructure:"canvas_width" yaml:"canvas_width"`
}

type ExportConfig struct {
	Title     string `mapstructure:"title" yaml:"title"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// AutosaveConfig controls scheduled saves of a dirty session. Schedule
// accepts standard cron specs and descriptors such as "@every 30s".
type AutosaveConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Schedule      string `mapstructure:"schedule" yaml:"schedule"`
	KeepRevisions int    `mapstructure:"keep_revisions" yaml:"keep_revisions"`
}

// DefaultDataDir is where the database lives unless storage.path says otherwise.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pagecraft"
	}
	return filepath.Join(home, ".local", "share", "pagecraft")
}

// NewDefaultConfig returns the configuration with every default applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "pagecraft")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Storage --
	v.SetDefault("storage.path", filepath.Join(DefaultDataDir(), "pagecraft.db"))

	// -- Editor --
	v.SetDefault("editor.min_zoom", 0.05)
	v.SetDefault("editor.max_zoom", 8.0)
	v.SetDefault("editor.grid_size", 8.0)
	v.SetDefault("editor.snap_threshold", 6.0)
	v.SetDefault("editor.history_depth", 100)
	v.SetDefault("editor.min_draw_size", 5.0)
	v.SetDefault("editor.canvas_width", 1440.0)

	// -- Analyzer --
	a := analyzer.DefaultConfig()
	v.SetDefault("analyzer.containment_overlap", a.ContainmentOverlap)
	v.SetDefault("analyzer.page_frame_coverage", a.PageFrameCoverage)
	v.SetDefault("analyzer.full_width", a.FullWidth)
	v.SetDefault("analyzer.low_height", a.LowHeight)
	v.SetDefault("analyzer.near_top", a.NearTop)
	v.SetDefault("analyzer.near_bottom", a.NearBottom)
	v.SetDefault("analyzer.side_edge", a.SideEdge)
	v.SetDefault("analyzer.narrow_width", a.NarrowWidth)
	v.SetDefault("analyzer.sidebar_min_aspect", a.SidebarMinAspect)
	v.SetDefault("analyzer.hero_top", a.HeroTop)
	v.SetDefault("analyzer.hero_min_height", a.HeroMinHeight)
	v.SetDefault("analyzer.card_max_width", a.CardMaxWidth)
	v.SetDefault("analyzer.card_min_aspect", a.CardMinAspect)
	v.SetDefault("analyzer.center_tolerance", a.CenterTolerance)
	v.SetDefault("analyzer.grid_max_cv", a.GridMaxCV)
	v.SetDefault("analyzer.heading_font_size", a.HeadingFontSize)
	v.SetDefault("analyzer.button_max_width", a.ButtonMaxWidth)
	v.SetDefault("analyzer.button_max_height", a.ButtonMaxHeight)
	v.SetDefault("analyzer.button_max_chars", a.ButtonMaxChars)

	// -- Export --
	v.SetDefault("export.title", "Untitled page")
	v.SetDefault("export.output_dir", "dist")

	// -- Autosave --
	v.SetDefault("autosave.enabled", false)
	v.SetDefault("autosave.schedule", "@every 30s")
	v.SetDefault("autosave.keep_revisions", 40)
}

// Load reads the config file at path, or pagecraft.yaml from the working
// directory and the data dir when path is empty. A missing default file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pagecraft")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper decodes and validates the settings held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if err := c.Editor.Validate(); err != nil {
		return fmt.Errorf("editor configuration invalid: %w", err)
	}
	if o := c.Analyzer.ContainmentOverlap; o <= 0 || o > 1 {
		return fmt.Errorf("analyzer.containment_overlap must be in (0, 1], got %v", o)
	}
	if err := c.Autosave.Validate(); err != nil {
		return fmt.Errorf("autosave configuration invalid: %w", err)
	}
	return nil
}

func (e *EditorConfig) Validate() error {
	if e.MinZoom <= 0 || e.MaxZoom <= 0 {
		return fmt.Errorf("zoom bounds must be positive")
	}
	if e.MinZoom >= e.MaxZoom {
		return fmt.Errorf("min_zoom (%v) must be below max_zoom (%v)", e.MinZoom, e.MaxZoom)
	}
	if e.GridSize <= 0 {
		return fmt.Errorf("grid_size must be positive")
	}
	if e.SnapThreshold <= 0 {
		return fmt.Errorf("snap_threshold must be positive")
	}
	if e.HistoryDepth < 1 {
		return fmt.Errorf("history_depth must be at least 1")
	}
	if e.MinDrawSize < 0 {
		return fmt.Errorf("min_draw_size must not be negative")
	}
	if e.CanvasWidth < 0 {
		return fmt.Errorf("canvas_width must not be negative")
	}
	return nil
}

func (a *AutosaveConfig) Validate() error {
	if a.KeepRevisions < 1 {
		return fmt.Errorf("keep_revisions must be at least 1")
	}
	if !a.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(a.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", a.Schedule, err)
	}
	return nil
}
