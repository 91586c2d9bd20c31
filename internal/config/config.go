// Package config resolves the service configuration once per process.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables mapped onto config keys.
// Nested keys use a double underscore: DIGEST_PROVIDER__API_KEY.
const EnvPrefix = "DIGEST_"

// DefaultFile is read from the working directory when present.
const DefaultFile = "config.yaml"

// EnvironmentDevelopment is the only environment in which mock responses may be served.
const EnvironmentDevelopment = "development"

type Config struct {
	Environment string            `koanf:"environment"`
	Server      ServerConfig      `koanf:"server"`
	Mock        MockConfig        `koanf:"mock"`
	Provider    ProviderConfig    `koanf:"provider"`
	Retry       RetryConfig       `koanf:"retry"`
	Storage     StorageConfig     `koanf:"storage"`
	Diagnostics DiagnosticsConfig `koanf:"diagnostics"`
	Tokens      TokensConfig      `koanf:"tokens"`
	Log         LogConfig         `koanf:"log"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type MockConfig struct {
	Enabled bool `koanf:"enabled"`
}

type ProviderConfig struct {
	Kind            string        `koanf:"kind"` // gemini, openai, mock
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url"`
	Model           string        `koanf:"model"`
	MaxOutputTokens int           `koanf:"max_output_tokens"`
	Temperature     float64       `koanf:"temperature"`
	Timeout         time.Duration `koanf:"timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type DiagnosticsConfig struct {
	Interval    time.Duration `koanf:"interval"`
	Autostart   bool          `koanf:"autostart"`
	InternetURL string        `koanf:"internet_url"`
}

type TokensConfig struct {
	// MaxInput rejects prompts above this estimate. Zero disables the check.
	MaxInput int `koanf:"max_input"`
}

type TelemetryConfig struct {
	// Traces exports spans to stdout.
	Traces bool `koanf:"traces"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"` // json, text
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// UseMock reports whether mock responses replace the real provider. Both the
// mock flag and a development environment are required.
func (c *Config) UseMock() bool {
	return c.Mock.Enabled && c.Environment == EnvironmentDevelopment
}

// HasCredential reports whether a provider credential is configured. A
// whitespace-only key counts as missing.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.Provider.APIKey) != ""
}

var defaults = map[string]any{
	"environment":                "production",
	"server.port":                8080,
	"server.request_timeout":     "120s",
	"mock.enabled":               false,
	"provider.kind":              "gemini",
	"provider.model":             "gemini-2.0-flash",
	"provider.max_output_tokens": 2048,
	"provider.temperature":       0.7,
	"provider.timeout":           "30s",
	"retry.max_attempts":         3,
	"retry.base_delay":           "1s",
	"storage.type":               "sqlite",
	"storage.sqlite.path":        "digests.db",
	"diagnostics.interval":       "12h",
	"diagnostics.autostart":      true,
	"diagnostics.internet_url":   "https://httpbin.org/get",
	"tokens.max_input":           0,
	"log.level":                  "info",
	"log.format":                 "json",
	"log.max_size_mb":            100,
	"log.max_backups":            3,
	"log.max_age_days":           28,
	"telemetry.traces":           false,
}

// wellKnownEnv maps unprefixed variables onto config keys. Prefixed variables
// take precedence over these.
var wellKnownEnv = map[string]string{
	"GOOGLE_API_KEY":     "provider.api_key",
	"USE_MOCK_RESPONSES": "mock.enabled",
	"APP_ENV":            "environment",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory (if present) and the environment.
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile is Load with an explicit file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	for name, key := range wellKnownEnv {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, v := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, v); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Provider.APIKey = strings.TrimSpace(substituteEnvVars(cfg.Provider.APIKey))
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
