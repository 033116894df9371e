package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30, cfg.Server.ReadTimeout)
	assert.Equal(t, 30, cfg.Server.WriteTimeout)

	assert.Equal(t, "../data/tivoli.db", cfg.Catalog.DBPath)
	assert.Equal(t, "../galleries", cfg.Galleries.Path)

	assert.Equal(t, 50, cfg.Thumbnail.MinWidth)
	assert.Equal(t, 1920, cfg.Thumbnail.MaxWidth)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  DefaultConfig,
			wantErr: false,
		},
		{
			name: "invalid server port - too low",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Server.Port = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid server port",
		},
		{
			name: "invalid server port - too high",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Server.Port = 70000
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid server port",
		},
		{
			name: "empty server host",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Server.Host = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "server host cannot be empty",
		},
		{
			name: "empty catalog db path",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Catalog.DBPath = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "catalog db path cannot be empty",
		},
		{
			name: "empty galleries path",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Galleries.Path = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "galleries path cannot be empty",
		},
		{
			name: "non-positive thumbnail min width",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Thumbnail.MinWidth = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "thumbnail min width must be positive",
		},
		{
			name: "thumbnail max width below min",
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Thumbnail.MaxWidth = cfg.Thumbnail.MinWidth - 1
				return cfg
			},
			wantErr: true,
			errMsg:  "thumbnail max width must be >= min width",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config().Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_WithEnvVars(t *testing.T) {
	envVars := map[string]string{
		"PORT":                 "9090",
		"TIVOLI_HOST":          "0.0.0.0",
		"TIVOLI_DB_PATH":       "/custom/tivoli.db",
		"TIVOLI_GALLERIES_PATH": "/custom/galleries",
		"TIVOLI_THUMB_MIN":     "100",
		"TIVOLI_THUMB_MAX":     "2000",
		"TIVOLI_LOG_LEVEL":     "debug",
		"TIVOLI_LOG_FORMAT":    "text",
	}

	for key, value := range envVars {
		_ = os.Setenv(key, value)
	}
	defer func() {
		for key := range envVars {
			_ = os.Unsetenv(key)
		}
	}()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/custom/tivoli.db", cfg.Catalog.DBPath)
	assert.Equal(t, "/custom/galleries", cfg.Galleries.Path)
	assert.Equal(t, 100, cfg.Thumbnail.MinWidth)
	assert.Equal(t, 2000, cfg.Thumbnail.MaxWidth)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfig_InvalidEnvVarFallsBackToDefault(t *testing.T) {
	_ = os.Setenv("PORT", "not-a-number")
	defer func() { _ = os.Unsetenv("PORT") }()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestLoadConfig_InvalidConfigReturnsError(t *testing.T) {
	_ = os.Setenv("PORT", "-1")
	defer func() { _ = os.Unsetenv("PORT") }()

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestReadWriteTimeoutDuration(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, int(cfg.ReadTimeoutDuration().Seconds()))
	assert.Equal(t, 30, int(cfg.WriteTimeoutDuration().Seconds()))
}
