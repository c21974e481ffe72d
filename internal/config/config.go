// Package config loads and saves the datesync YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"media-datesync/internal/datesync"
	"media-datesync/internal/extract"
	"media-datesync/internal/fsys"
	"media-datesync/internal/resolve"
	"media-datesync/internal/retry"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

const fileName = ".datesync.yaml"

// RetryConfig mirrors retry.Policy in the config file
type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
	Factor   float64       `yaml:"factor"`
}

// Config represents the YAML configuration
type Config struct {
	MediaInfoPath  string        `yaml:"mediainfo_path"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
	WindowSize     int           `yaml:"window_size"`
	ChunkSize      int           `yaml:"chunk_size"`
	ChunkPause     time.Duration `yaml:"chunk_pause"`
	Retry          RetryConfig   `yaml:"retry"`
	DriveCacheTTL  time.Duration `yaml:"drive_cache_ttl"`
	CacheDir       string        `yaml:"cache_dir"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		MediaInfoPath:  "mediainfo",
		ExtractTimeout: extract.DefaultTimeout,
		WindowSize:     resolve.DefaultWindowSize,
		ChunkSize:      datesync.DefaultChunkSize,
		ChunkPause:     datesync.DefaultPause,
		Retry: RetryConfig{
			Attempts: retry.Default.MaxAttempts,
			Delay:    retry.Default.Delay,
			Factor:   retry.Default.Factor,
		},
		DriveCacheTTL: fsys.DefaultDriveTTL,
		CacheDir:      defaultCacheDir(),
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".datesync-cache"
	}
	return filepath.Join(dir, "datesync")
}

// Path returns the path to the config file
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return fileName
	}
	return filepath.Join(home, fileName)
}

// Exists checks if the config file at path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads the config at path on top of the defaults, so keys missing from
// the file keep their default values
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and returns defaults otherwise
func LoadOrDefault(path string) (*Config, error) {
	if !Exists(path) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes cfg to path
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var problems []string
	if c.ExtractTimeout <= 0 {
		problems = append(problems, "extract_timeout must be positive")
	}
	if c.WindowSize < 1 {
		problems = append(problems, "window_size must be at least 1")
	}
	if c.ChunkSize < 1 {
		problems = append(problems, "chunk_size must be at least 1")
	}
	if c.ChunkPause < 0 {
		problems = append(problems, "chunk_pause cannot be negative")
	}
	if c.Retry.Attempts < 1 {
		problems = append(problems, "retry.attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		problems = append(problems, "retry.delay cannot be negative")
	}
	if c.Retry.Factor < 1 {
		problems = append(problems, "retry.factor must be at least 1")
	}
	if c.DriveCacheTTL < 0 {
		problems = append(problems, "drive_cache_ttl cannot be negative")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("log_level %q is not a level", c.LogLevel))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q must be console or json", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// RetryPolicy converts the retry section into a policy
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.Attempts,
		Delay:       c.Retry.Delay,
		Factor:      c.Retry.Factor,
	}
}
