// Bloodhound - CTF First Blood Tracker and Live Scoreboard
// Copyright 2026 Samurai CTF Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/samuraictf/bloodhound

// Package config loads service configuration with a layered precedence:
// built-in defaults, then an optional YAML file, then environment
// variables. ENV > File > Defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable that points at an
// explicit config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"./bloodhound.yaml",
	"./config/bloodhound.yaml",
	"/etc/bloodhound/config.yaml",
}

// Auth modes for the upstream CTFd connection.
const (
	AuthModeSession = "session"
	AuthModeToken   = "token"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	CTFd    CTFdConfig    `koanf:"ctfd"`
	Poll    PollConfig    `koanf:"poll"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port" validate:"min=1,max=65535"`
	StaticDir   string   `koanf:"static_dir"`
	CORSOrigins []string `koanf:"cors_origins"`
	// RateLimit is the per-IP request budget per minute for the API.
	RateLimit       int           `koanf:"rate_limit" validate:"min=1"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CTFdConfig configures the upstream competition API.
type CTFdConfig struct {
	URL      string `koanf:"url" validate:"required,url"`
	AuthMode string `koanf:"auth_mode" validate:"oneof=session token"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Token    string `koanf:"token"`
	// Timeout bounds every upstream request.
	Timeout  time.Duration `koanf:"timeout" validate:"min=1s"`
	PageSize int           `koanf:"page_size" validate:"min=1,max=500"`
	// RequestsPerSecond caps the client-side request rate.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// PollConfig configures the update broadcaster's polling loop.
type PollConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"min=1s"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			StaticDir:       "./static",
			CORSOrigins:     []string{"*"},
			RateLimit:       300,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		CTFd: CTFdConfig{
			URL:               "http://localhost:8000",
			AuthMode:          AuthModeSession,
			Timeout:           10 * time.Second,
			PageSize:          100,
			RequestsPerSecond: 5,
		},
		Poll: PollConfig{
			Enabled:  true,
			Interval: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths that accept comma-separated
// strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are dropped so unrelated environment noise cannot
// leak into the configuration.
//
// Examples:
//   - CTFD_URL -> ctfd.url
//   - CTFD_AUTH_MODE -> ctfd.auth_mode
//   - POLL_INTERVAL -> poll.interval
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"ctfd_url":                 "ctfd.url",
		"ctfd_auth_mode":           "ctfd.auth_mode",
		"ctfd_username":            "ctfd.username",
		"ctfd_password":            "ctfd.password",
		"ctfd_token":               "ctfd.token",
		"ctfd_timeout":             "ctfd.timeout",
		"ctfd_page_size":           "ctfd.page_size",
		"ctfd_requests_per_second": "ctfd.requests_per_second",

		"poll_enabled":  "poll.enabled",
		"poll_interval": "poll.interval",

		"http_host":        "server.host",
		"http_port":        "server.port",
		"static_dir":       "server.static_dir",
		"cors_origins":     "server.cors_origins",
		"rate_limit":       "server.rate_limit",
		"shutdown_timeout": "server.shutdown_timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Validate checks structural constraints via validator tags plus the
// semantic rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.CTFd.AuthMode {
	case AuthModeSession:
		if c.CTFd.Username == "" || c.CTFd.Password == "" {
			return fmt.Errorf("auth_mode %q requires ctfd.username and ctfd.password", AuthModeSession)
		}
	case AuthModeToken:
		if c.CTFd.Token == "" {
			return fmt.Errorf("auth_mode %q requires ctfd.token", AuthModeToken)
		}
	}

	if c.CTFd.RequestsPerSecond <= 0 {
		return fmt.Errorf("ctfd.requests_per_second must be positive, got %v", c.CTFd.RequestsPerSecond)
	}

	return nil
}
