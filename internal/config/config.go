// Package config holds the settings of a specsplit run.
//
// Values start from Defaults, are overridden by an optional YAML file and
// finally by command line flags that were set explicitly.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/multierr"

	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/splitter"
	"github.com/md4c-json/specsplit/internal/textenc"
	"github.com/md4c-json/specsplit/internal/watcher"
)

type ParserConfig struct {
	// Command, when set, runs an external parser instead of the built-in one.
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	InputDirs       []string       `yaml:"input_dirs"`
	OutputDir       string         `yaml:"output_dir"`
	Encoding        string         `yaml:"encoding"`
	Exclude         []string       `yaml:"exclude"`
	ContinueOnError bool           `yaml:"continue_on_error"`
	Manifest        string         `yaml:"manifest"`
	Quiet           bool           `yaml:"quiet"`
	Parser          ParserConfig   `yaml:"parser"`
	Log             LogConfig      `yaml:"log"`
	Watch           watcher.Config `yaml:"watch"`
}

func Defaults() *Config {
	return &Config{
		InputDirs: []string{splitter.DefaultInputDir},
		OutputDir: splitter.DefaultOutputDir,
		Encoding:  string(textenc.ModeUTF8),
		Parser: ParserConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Watch: watcher.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem of c at once.
func (c *Config) Validate() error {
	var errs error

	if c.OutputDir == "" {
		errs = multierr.Append(errs, fmt.Errorf("output_dir: must not be empty"))
	}
	if _, err := textenc.ParseMode(c.Encoding); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("encoding: %w", err))
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = multierr.Append(errs, fmt.Errorf("exclude: invalid pattern %q", pattern))
		}
	}
	if c.Parser.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("parser.timeout: must not be negative"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = multierr.Append(errs, fmt.Errorf("log.format: want text or json, got %q", c.Log.Format))
	}
	if c.Watch.DebounceWindow <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("watch.debounce_window: must be positive"))
	}
	if c.Watch.MaxBatchSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("watch.max_batch_size: must be positive"))
	}
	for _, pattern := range c.Watch.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			errs = multierr.Append(errs, fmt.Errorf("watch.ignore_patterns: invalid pattern %q", pattern))
		}
	}

	return errs
}

// EncodingMode assumes a validated config.
func (c *Config) EncodingMode() textenc.Mode {
	mode, _ := textenc.ParseMode(c.Encoding)
	return mode
}

func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	if level, err := logger.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	} else {
		cfg.Level = slog.LevelInfo
	}
	cfg.Format = c.Log.Format
	cfg.File = c.Log.File
	cfg.MaxSizeMB = c.Log.MaxSizeMB
	cfg.MaxBackups = c.Log.MaxBackups
	cfg.MaxAgeDays = c.Log.MaxAgeDays
	return cfg
}
