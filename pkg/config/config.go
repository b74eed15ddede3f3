package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envConfigPath = "TRIDENT_CONFIG"
	envModel      = "TRIDENT_MODEL"
	envPreset     = "TRIDENT_PRESET"
	envRounds     = "TRIDENT_ROUNDS"

	configFileName = "trident.json"

	DefaultMaxOutputTokens = 500
	DefaultTemperature     = 0.7
	DefaultRounds          = 3
	DefaultPreset          = "balanced"
)

// Config is the root runtime configuration loaded from trident.json.
type Config struct {
	Providers ProvidersConfig                   `json:"providers"`
	Session   SessionConfig                     `json:"session"`
	Presets   map[string]map[string]PresetEntry `json:"presets,omitempty"`
	Logging   LoggingConfig                     `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// SessionConfig selects how a deliberation runs.
//
// Model, when set, sends every agent to that single model and wins over Preset.
type SessionConfig struct {
	Rounds int    `json:"rounds"`
	Model  string `json:"model"`
	Preset string `json:"preset"`
}

// PresetEntry maps one agent to a backend/model pair.
type PresetEntry struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ProvidersConfig stores per-backend connection settings.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `json:"openai"`
	Anthropic ProviderConfig `json:"anthropic"`
	Google    ProviderConfig `json:"google"`
}

// ProviderConfig configures one backend adapter.
type ProviderConfig struct {
	APIKeyEnv             string      `json:"api_key_env"`
	BaseURL               string      `json:"base_url"`
	RequestTimeoutSeconds int         `json:"request_timeout_seconds"`
	MaxOutputTokens       int         `json:"max_output_tokens"`
	Temperature           *float64    `json:"temperature,omitempty"`
	Retry                 RetryConfig `json:"retry"`
}

// RetryConfig is a per-backend linear backoff policy.
type RetryConfig struct {
	MaxAttempts int `json:"max_attempts"`
	BaseDelayMS int `json:"base_delay_ms"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			OpenAI:    ProviderConfig{Retry: RetryConfig{MaxAttempts: 1}},
			Anthropic: ProviderConfig{Retry: RetryConfig{MaxAttempts: 3, BaseDelayMS: 1000}},
			Google:    ProviderConfig{Retry: RetryConfig{MaxAttempts: 1}},
		},
		Session: SessionConfig{
			Rounds: DefaultRounds,
			Preset: DefaultPreset,
		},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// LoadConfig resolves trident.json, unmarshals it over defaults, and applies
// environment overrides. A missing file is not an error unless TRIDENT_CONFIG
// names it explicitly.
func LoadConfig() (*Config, error) {
	cfg := Default()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a session.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Session.Rounds != 1 && c.Session.Rounds != 3 {
		return fmt.Errorf("session.rounds must be 1 or 3, got %d", c.Session.Rounds)
	}
	for name, p := range map[string]ProviderConfig{
		"openai":    c.Providers.OpenAI,
		"anthropic": c.Providers.Anthropic,
		"google":    c.Providers.Google,
	} {
		if p.Retry.MaxAttempts < 0 || p.Retry.BaseDelayMS < 0 {
			return fmt.Errorf("providers.%s.retry must not be negative", name)
		}
		if p.MaxOutputTokens < 0 {
			return fmt.Errorf("providers.%s.max_output_tokens must not be negative", name)
		}
	}

	return nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if model := strings.TrimSpace(os.Getenv(envModel)); model != "" {
		cfg.Session.Model = model
	}
	if preset := strings.TrimSpace(os.Getenv(envPreset)); preset != "" {
		cfg.Session.Preset = preset
	}
	if raw := strings.TrimSpace(os.Getenv(envRounds)); raw != "" {
		rounds, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", envRounds, err)
		}
		cfg.Session.Rounds = rounds
	}

	return nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is TRIDENT_CONFIG first, then cwd-local fallback paths. An
// empty result means no file was found.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, configFileName),
		filepath.Join(cwd, "config", configFileName),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
