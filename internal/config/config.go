// Package config handles runviewer configuration loading and validation.
package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/tOgg1/runviewer/internal/logging"
	"github.com/tOgg1/runviewer/internal/models"
)

// ErrNoSource is returned by RequireSource when neither an origin nor a
// directory is configured.
var ErrNoSource = errors.New("source.origin or source.dir is required")

// Config is the root configuration structure for runviewer.
type Config struct {
	// Where runs and frames come from
	Source SourceConfig `yaml:"source" mapstructure:"source"`

	// Prefetch scheduling
	Loader LoaderConfig `yaml:"loader" mapstructure:"loader"`

	// Playback settings
	Playback PlaybackConfig `yaml:"playback" mapstructure:"playback"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// Resume settings
	Resume ResumeConfig `yaml:"resume" mapstructure:"resume"`
}

// SourceConfig selects the task and where its frames are read from.
type SourceConfig struct {
	// Task is the task type (maze, memory).
	Task string `yaml:"task" mapstructure:"task"`

	// BasePath is the deployment prefix, e.g. /ppo_lstm_viewer.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	// Origin is the HTTP origin serving the static tree, e.g. http://localhost:8000.
	Origin string `yaml:"origin" mapstructure:"origin"`

	// Dir is a local directory containing static/runs/<task>/...
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LoaderConfig tunes the prefetch scheduler.
type LoaderConfig struct {
	// SparseStride is the frame stride of the initial sparse scan.
	SparseStride int `yaml:"sparse_stride" mapstructure:"sparse_stride"`

	// YieldInterval is the pause between background passes.
	YieldInterval time.Duration `yaml:"yield_interval" mapstructure:"yield_interval"`

	// FetchTimeout bounds a single image request.
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`

	// SearchRadius bounds the nearest-frame fallback.
	SearchRadius int `yaml:"search_radius" mapstructure:"search_radius"`
}

// PlaybackConfig contains playback settings.
type PlaybackConfig struct {
	// FPS is the initial playback speed.
	FPS int `yaml:"fps" mapstructure:"fps"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. The terminal viewer logs here.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// RefreshInterval is how often to redraw while frames load.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`
}

// ResumeConfig controls reopening the viewer where it was left.
type ResumeConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the position file (default: ~/.config/runviewer/position.yaml).
	Path string `yaml:"path" mapstructure:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Source: SourceConfig{
			Task: string(models.TaskMaze),
		},
		Loader: LoaderConfig{
			SparseStride:  10,
			YieldInterval: 100 * time.Millisecond,
			FetchTimeout:  15 * time.Second,
			SearchRadius:  20,
		},
		Playback: PlaybackConfig{
			FPS: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			RefreshInterval: 250 * time.Millisecond,
			Theme:           "default",
		},
		Resume: ResumeConfig{
			Enabled: true,
			Path:    filepath.Join(homeDir, ".config", "runviewer", "position.yaml"),
		},
	}
}

// Validate checks every section and reports all failures together as a
// *models.ValidationErrors keyed by config path.
func (c *Config) Validate() error {
	problems := &models.ValidationErrors{}
	problems.Add("source", c.Source.validate())
	problems.Add("loader", c.Loader.validate())
	problems.Add("playback", c.Playback.validate())
	problems.Add("logging", c.Logging.validate())
	problems.Add("tui", c.TUI.validate())
	return problems.Err()
}

func (s SourceConfig) validate() error {
	problems := &models.ValidationErrors{}
	if _, err := models.ParseTaskType(s.Task); err != nil {
		problems.Add("task", err)
	}
	if s.Origin != "" {
		u, err := url.Parse(s.Origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems.Addf("origin", "must be an http(s) URL, got %q", s.Origin)
		}
	}
	return problems.Err()
}

func (l LoaderConfig) validate() error {
	problems := &models.ValidationErrors{}
	if l.SparseStride < 1 {
		problems.Addf("sparse_stride", "must be at least 1")
	}
	if l.YieldInterval < 10*time.Millisecond {
		problems.Addf("yield_interval", "must be at least 10ms")
	}
	if l.FetchTimeout <= 0 {
		problems.Addf("fetch_timeout", "must be positive")
	}
	if l.SearchRadius < 1 {
		problems.Addf("search_radius", "must be at least 1")
	}
	return problems.Err()
}

func (p PlaybackConfig) validate() error {
	problems := &models.ValidationErrors{}
	if p.FPS < 1 || p.FPS > 60 {
		problems.Addf("fps", "must be between 1 and 60, got %d", p.FPS)
	}
	return problems.Err()
}

func (l LoggingConfig) validate() error {
	problems := &models.ValidationErrors{}
	if !logging.ValidLevel(l.Level) {
		problems.Addf("level", "must be one of trace, debug, info, warn, error")
	}
	switch l.Format {
	case "json", "console":
	default:
		problems.Addf("format", "must be json or console")
	}
	return problems.Err()
}

func (t TUIConfig) validate() error {
	problems := &models.ValidationErrors{}
	switch t.Theme {
	case "default", "high-contrast":
	default:
		problems.Addf("theme", "must be default or high-contrast")
	}
	if t.RefreshInterval < 10*time.Millisecond {
		problems.Addf("refresh_interval", "must be at least 10ms")
	}
	return problems.Err()
}

// RequireSource reports ErrNoSource when frames cannot be read from anywhere.
func (c *Config) RequireSource() error {
	if c.Source.Origin == "" && c.Source.Dir == "" {
		return ErrNoSource
	}
	return nil
}

// TaskType returns the validated task type.
func (c *Config) TaskType() models.TaskType {
	task, _ := models.ParseTaskType(c.Source.Task)
	return task
}

// Paths returns the resource layout for the configured task.
func (c *Config) Paths() models.Paths {
	return models.Paths{BasePath: c.Source.BasePath, Task: c.TaskType()}
}
