// Package config provides configuration management for the Tivoli server,
// handling environment variables, an optional YAML overlay, and runtime
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
	Galleries GalleriesConfig `json:"galleries" yaml:"galleries"`
	Thumbnail ThumbnailConfig `json:"thumbnail" yaml:"thumbnail"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// ServerConfig represents server listener configuration.
type ServerConfig struct {
	Port         int    `json:"port" yaml:"port"`
	Host         string `json:"host" yaml:"host"`
	ReadTimeout  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
}

// CatalogConfig represents the on-disk snapshot location.
type CatalogConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// GalleriesConfig represents the galleries root used to resolve image paths.
type GalleriesConfig struct {
	Path string `json:"path" yaml:"path"`
}

// ThumbnailConfig represents the thumbnail clamp bounds.
type ThumbnailConfig struct {
	MinWidth int `json:"min_width" yaml:"min_width"`
	MaxWidth int `json:"max_width" yaml:"max_width"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Catalog: CatalogConfig{
			DBPath: "../data/tivoli.db",
		},
		Galleries: GalleriesConfig{
			Path: "../galleries",
		},
		Thumbnail: ThumbnailConfig{
			MinWidth: 50,
			MaxWidth: 1920,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from an optional YAML overlay and
// environment variables, validating the result.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if path := os.Getenv("TIVOLI_CONFIG_FILE"); path != "" {
		if err := loadYAMLOverlay(cfg, path); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadYAMLOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables, each group
// handled by its own loader.
func loadFromEnv(cfg *Config) {
	loadServerConfig(cfg)
	loadCatalogConfig(cfg)
	loadGalleriesConfig(cfg)
	loadThumbnailConfig(cfg)
	loadLoggingConfig(cfg)
}

func loadServerConfig(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("TIVOLI_HOST"); host != "" {
		cfg.Server.Host = host
	}
	setIntFromEnv("TIVOLI_READ_TIMEOUT_SECONDS", &cfg.Server.ReadTimeout)
	setIntFromEnv("TIVOLI_WRITE_TIMEOUT_SECONDS", &cfg.Server.WriteTimeout)
}

func loadCatalogConfig(cfg *Config) {
	if path := os.Getenv("TIVOLI_DB_PATH"); path != "" {
		cfg.Catalog.DBPath = path
	}
}

func loadGalleriesConfig(cfg *Config) {
	if path := os.Getenv("TIVOLI_GALLERIES_PATH"); path != "" {
		cfg.Galleries.Path = path
	}
}

func loadThumbnailConfig(cfg *Config) {
	setIntFromEnv("TIVOLI_THUMB_MIN", &cfg.Thumbnail.MinWidth)
	setIntFromEnv("TIVOLI_THUMB_MAX", &cfg.Thumbnail.MaxWidth)
}

func loadLoggingConfig(cfg *Config) {
	if level := os.Getenv("TIVOLI_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("TIVOLI_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

func setIntFromEnv(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// Validate validates the configuration, dispatching to per-concern
// validators.
func (c *Config) Validate() error {
	if err := c.validateServerConfig(); err != nil {
		return err
	}
	if err := c.validateCatalogConfig(); err != nil {
		return err
	}
	if err := c.validateGalleriesConfig(); err != nil {
		return err
	}
	if err := c.validateThumbnailConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return errors.New("server host cannot be empty")
	}
	return nil
}

func (c *Config) validateCatalogConfig() error {
	if c.Catalog.DBPath == "" {
		return errors.New("catalog db path cannot be empty")
	}
	return nil
}

func (c *Config) validateGalleriesConfig() error {
	if c.Galleries.Path == "" {
		return errors.New("galleries path cannot be empty")
	}
	return nil
}

func (c *Config) validateThumbnailConfig() error {
	if c.Thumbnail.MinWidth <= 0 {
		return errors.New("thumbnail min width must be positive")
	}
	if c.Thumbnail.MaxWidth < c.Thumbnail.MinWidth {
		return errors.New("thumbnail max width must be >= min width")
	}
	return nil
}

// ReadTimeoutDuration returns the server read timeout as a time.Duration.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the server write timeout as a time.Duration.
func (c *Config) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}
