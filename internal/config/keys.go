// Package config provides API key management utilities.
package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// ErrNoSearchKey is returned by search calls made without a search key.
var ErrNoSearchKey = errors.New("no web search API key configured")

// Environment variables that carry secrets.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvSearchAPIKey    = "TAVILY_API_KEY"
)

// GetAPIKey returns the Anthropic API key from the configuration.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config) (string, error) {
	var configured string
	if cfg != nil {
		configured = cfg.Anthropic.APIKey
	}
	if key, src := resolveSecret(EnvAnthropicAPIKey, configured); src != KeySourceNone {
		return key, nil
	}
	return "", ErrNoAPIKey
}

// GetSearchKey returns the web search API key, or "" when search is not
// configured. Missing search keys are not an error.
func GetSearchKey(cfg *Config) string {
	var configured string
	if cfg != nil {
		configured = cfg.Search.APIKey
	}
	key, _ := resolveSecret(EnvSearchAPIKey, configured)
	return key
}

// ValidateAPIKey performs basic validation on an API key.
// It checks format but does not verify the key with Anthropic's API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	// Anthropic API keys start with "sk-ant-"
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of a secret for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the Anthropic API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	var configured string
	if cfg != nil {
		configured = cfg.Anthropic.APIKey
	}
	_, src := resolveSecret(EnvAnthropicAPIKey, configured)
	return src
}

// GetSearchKeySource returns where the web search key was sourced from.
func GetSearchKeySource(cfg *Config) KeySource {
	var configured string
	if cfg != nil {
		configured = cfg.Search.APIKey
	}
	_, src := resolveSecret(EnvSearchAPIKey, configured)
	return src
}

// resolveSecret prefers the environment over the configured value. Unexpanded
// ${VAR} references count as unset.
func resolveSecret(env, configured string) (string, KeySource) {
	if key := os.Getenv(env); key != "" {
		return key, KeySourceEnv
	}
	if configured != "" {
		key := os.ExpandEnv(configured)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig
		}
	}
	return "", KeySourceNone
}
