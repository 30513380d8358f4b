// Package config loads and persists quantcal configuration from
// ~/.quantcal/config.yaml, with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/rmarkell/quantcal/internal/calib"
)

// Environment variables recognized as overrides.
const (
	// EnvCacheDir overrides the calibration cache directory.
	EnvCacheDir = "QUANTCAL_CACHE_DIR"

	// EnvBatchSize overrides the calibration batch size.
	EnvBatchSize = "QUANTCAL_BATCH_SIZE"

	// EnvLogLevel overrides the logging level.
	EnvLogLevel = "QUANTCAL_LOG_LEVEL"
)

// configDirName is the per-user configuration directory under $HOME.
const configDirName = ".quantcal"

// Validation errors.
var (
	ErrInvalidBatchSize = errors.New("calibration.batch_size must be positive")
	ErrInvalidPasses    = errors.New("calibration.passes must be positive")
	ErrInvalidLogLevel  = errors.New("logging.level must be one of trace, debug, info, warn, error")
)

// validLogLevels are the accepted logging.level values.
//
//nolint:gochecknoglobals // Static lookup table.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// DatasetConfig locates calibration/evaluation data.
type DatasetConfig struct {
	// Dir is where IDX image/label files are searched for.
	Dir string `yaml:"dir"`
}

// CalibrationConfig controls the calibration sweep.
type CalibrationConfig struct {
	// BatchSize is the number of samples per calibration batch.
	BatchSize int `yaml:"batch_size"`

	// Passes is the number of full sweeps over the calibration pool.
	Passes int `yaml:"passes"`

	// CacheDir is where calibration cache artifacts are written.
	CacheDir string `yaml:"cache_dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `yaml:"level"`

	// Format is "console" or "json".
	Format string `yaml:"format"`

	// File, when set, receives a copy of log output.
	File string `yaml:"file"`
}

// Config is the full quantcal configuration.
type Config struct {
	Dataset     DatasetConfig     `yaml:"dataset"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Logging     LoggingConfig     `yaml:"logging"`

	// configPath is where Save writes; set by the loader.
	configPath string
}

// Default returns the built-in defaults, before file or env overrides.
func Default() *Config {
	home := homeDir()
	return &Config{
		Dataset: DatasetConfig{
			Dir: filepath.Join(home, configDirName, "data"),
		},
		Calibration: CalibrationConfig{
			BatchSize: calib.DefaultBatchSize,
			Passes:    calib.DefaultPasses,
			CacheDir:  filepath.Join(home, configDirName, "cache"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		configPath: filepath.Join(home, configDirName, "config.yaml"),
	}
}

// New loads configuration: defaults, overlaid by ~/.quantcal/config.yaml
// when present, overlaid by environment variables. A missing config file is
// not an error; a malformed one is warned about and degrades to defaults.
func New() *Config {
	cfg := Default()

	data, err := os.ReadFile(cfg.configPath)
	if err == nil {
		// Decode over a copy of the defaults so absent keys keep their
		// values and a malformed file leaves the defaults untouched.
		loaded := *cfg
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			log.Warn().Str("path", cfg.configPath).Err(err).
				Msg("ignoring malformed config file, using defaults")
		} else {
			*cfg = loaded
		}
	}

	cfg.applyEnv()
	return cfg
}

// applyEnv overlays recognized environment variables.
func (c *Config) applyEnv() {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		c.Calibration.CacheDir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if raw := os.Getenv(EnvBatchSize); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			c.Calibration.BatchSize = n
		}
	}
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if c.Calibration.BatchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.Calibration.BatchSize)
	}
	if c.Calibration.Passes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPasses, c.Calibration.Passes)
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	return nil
}

// SetConfigPath overrides where Save writes. Used by config init and tests.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// ConfigPath returns the path Save writes to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// Save writes the configuration as YAML, creating the directory as needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// CachePathFor returns the calibration cache path for a model name, under
// the configured cache directory.
func (c *Config) CachePathFor(modelName string) string {
	return filepath.Join(c.Calibration.CacheDir, modelName+".calib.json")
}

// homeDir returns the user home directory, falling back to the working
// directory when it cannot be resolved.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
