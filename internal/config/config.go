package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the quadfetch CLI.
type Config struct {
	APIBaseURL   string `yaml:"api_base_url"`
	APIKeyFile   string `yaml:"api_key_file"`
	RegionFile   string `yaml:"region_file"`
	OutputDir    string `yaml:"output_dir"`
	CacheBackend string `yaml:"cache_backend"`
	CachePath    string `yaml:"cache_path"`
	MosaicPrefix string `yaml:"mosaic_prefix"`
	PageSize     int    `yaml:"page_size"`
	Workers      int    `yaml:"workers"`
	Progress     bool   `yaml:"progress"`
	LogLevel     string `yaml:"log_level"`
	Timeout      time.Duration
	Catalog      RetryConfig `yaml:"catalog_retry"`
	Quads        RetryConfig `yaml:"quad_retry"`
}

// RetryConfig defines retry behavior for one class of catalog request.
type RetryConfig struct {
	Attempts    int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	Exponential bool
}

// Default returns a Config with sensible defaults. The retry asymmetry is
// deliberate: the catalog root waits a constant 10s between attempts,
// quad pages start at 2s and double.
func Default() Config {
	return Config{
		APIBaseURL:   "https://api.planet.com/basemaps/v1",
		OutputDir:    "quads",
		CacheBackend: "json",
		CachePath:    "quad_cache.json",
		MosaicPrefix: "nicfi",
		PageSize:     50,
		Workers:      5,
		LogLevel:     "info",
		Timeout:      120 * time.Second,
		Catalog: RetryConfig{
			Attempts: 5,
			Backoff:  10 * time.Second,
		},
		Quads: RetryConfig{
			Attempts:    5,
			Backoff:     2 * time.Second,
			MaxBackoff:  60 * time.Second,
			Exponential: true,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	APIBaseURL   string          `yaml:"api_base_url"`
	APIKeyFile   string          `yaml:"api_key_file"`
	RegionFile   string          `yaml:"region_file"`
	OutputDir    string          `yaml:"output_dir"`
	CacheBackend string          `yaml:"cache_backend"`
	CachePath    string          `yaml:"cache_path"`
	MosaicPrefix string          `yaml:"mosaic_prefix"`
	PageSize     int             `yaml:"page_size"`
	Workers      int             `yaml:"workers"`
	Progress     bool            `yaml:"progress"`
	LogLevel     string          `yaml:"log_level"`
	Timeout      string          `yaml:"timeout"`
	Catalog      yamlRetryConfig `yaml:"catalog_retry"`
	Quads        yamlRetryConfig `yaml:"quad_retry"`
}

type yamlRetryConfig struct {
	Attempts    int    `yaml:"attempts"`
	Backoff     string `yaml:"backoff"`
	MaxBackoff  string `yaml:"max_backoff"`
	Exponential *bool  `yaml:"exponential"`
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.APIBaseURL != "" {
		cfg.APIBaseURL = yc.APIBaseURL
	}
	if yc.APIKeyFile != "" {
		cfg.APIKeyFile = yc.APIKeyFile
	}
	if yc.RegionFile != "" {
		cfg.RegionFile = yc.RegionFile
	}
	if yc.OutputDir != "" {
		cfg.OutputDir = yc.OutputDir
	}
	if yc.CacheBackend != "" {
		cfg.CacheBackend = yc.CacheBackend
	}
	if yc.CachePath != "" {
		cfg.CachePath = yc.CachePath
	}
	if yc.MosaicPrefix != "" {
		cfg.MosaicPrefix = yc.MosaicPrefix
	}
	if yc.PageSize != 0 {
		cfg.PageSize = yc.PageSize
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	cfg.Progress = yc.Progress
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if err := applyRetry(&cfg.Catalog, yc.Catalog, "catalog_retry"); err != nil {
		return Config{}, err
	}
	if err := applyRetry(&cfg.Quads, yc.Quads, "quad_retry"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyRetry(rc *RetryConfig, yc yamlRetryConfig, name string) error {
	if yc.Attempts != 0 {
		rc.Attempts = yc.Attempts
	}
	if yc.Backoff != "" {
		d, err := time.ParseDuration(yc.Backoff)
		if err != nil {
			return fmt.Errorf("parse %s.backoff: %w", name, err)
		}
		rc.Backoff = d
	}
	if yc.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.MaxBackoff)
		if err != nil {
			return fmt.Errorf("parse %s.max_backoff: %w", name, err)
		}
		rc.MaxBackoff = d
	}
	if yc.Exponential != nil {
		rc.Exponential = *yc.Exponential
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the QUADFETCH_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("QUADFETCH_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("QUADFETCH_API_KEY_FILE"); v != "" {
		c.APIKeyFile = v
	}
	if v := os.Getenv("QUADFETCH_REGION_FILE"); v != "" {
		c.RegionFile = v
	}
	if v := os.Getenv("QUADFETCH_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("QUADFETCH_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("QUADFETCH_CACHE_PATH"); v != "" {
		c.CachePath = v
	}
	if v := os.Getenv("QUADFETCH_MOSAIC_PREFIX"); v != "" {
		c.MosaicPrefix = v
	}
	if v := os.Getenv("QUADFETCH_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse QUADFETCH_PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	if v := os.Getenv("QUADFETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse QUADFETCH_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("QUADFETCH_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("QUADFETCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("QUADFETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse QUADFETCH_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}

	return nil
}

// APIKey resolves the bearer token: QUADFETCH_API_KEY wins, otherwise the
// configured key file is read and trimmed.
func (c *Config) APIKey() (string, error) {
	if v := os.Getenv("QUADFETCH_API_KEY"); v != "" {
		return v, nil
	}
	if c.APIKeyFile == "" {
		return "", errors.New("config: no API key; set api_key_file or QUADFETCH_API_KEY")
	}
	data, err := os.ReadFile(c.APIKeyFile)
	if err != nil {
		return "", fmt.Errorf("read API key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("config: API key file %s is empty", c.APIKeyFile)
	}
	return key, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("config: api_base_url is required")
	}
	if c.RegionFile == "" {
		return errors.New("config: region_file is required")
	}
	if c.OutputDir == "" {
		return errors.New("config: output_dir is required")
	}
	if c.CachePath == "" {
		return errors.New("config: cache_path is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.PageSize <= 0 {
		return errors.New("config: page_size must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	return nil
}
