// Package config handles configuration loading and management for the validator.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// appName names the config directory and project file.
const appName = "validator"

// Config holds all configuration for the validator.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Specialists  SpecialistsConfig  `mapstructure:"specialists"`
	Search       SearchConfig       `mapstructure:"search"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Server       ServerConfig       `mapstructure:"server"`
	Session      SessionConfig      `mapstructure:"session"`
	Stream       StreamConfig       `mapstructure:"stream"`
	Log          LogConfig          `mapstructure:"log"`
}

// AnthropicConfig holds model provider settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// OrchestratorConfig bounds a single orchestrator turn.
type OrchestratorConfig struct {
	// MaxIterations caps model round-trips per turn.
	MaxIterations int `mapstructure:"max_iterations"`
	MaxTokens     int `mapstructure:"max_tokens"`
	// TurnTimeout bounds one whole turn, specialists included.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
}

// SpecialistsConfig points at agent and question definitions. Empty paths use
// the built-in definitions.
type SpecialistsConfig struct {
	AgentsFile    string `mapstructure:"agents_file"`
	QuestionsFile string `mapstructure:"questions_file"`
}

// SearchConfig holds hosted web search settings.
type SearchConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TracingConfig holds Langfuse credentials. Tracing is off unless both keys
// are set.
type TracingConfig struct {
	PublicKey string `mapstructure:"public_key"`
	SecretKey string `mapstructure:"secret_key"`
	Host      string `mapstructure:"host"`
}

// Enabled reports whether tracing credentials are present.
func (t TracingConfig) Enabled() bool {
	return t.PublicKey != "" && t.SecretKey != ""
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RecordDir, when set, receives one NDJSON event log per turn.
	RecordDir string `mapstructure:"record_dir"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	// Store is one of memory, redis or sqlite.
	Store      string `mapstructure:"store"`
	RedisURL   string `mapstructure:"redis_url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// StreamConfig tunes stream correlation.
type StreamConfig struct {
	// MaxArgumentBytes caps one tool call's buffered arguments; 0 disables.
	MaxArgumentBytes int `mapstructure:"max_argument_bytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel maps the configured level to a slog level. Unknown values are info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, TAVILY_API_KEY, LANGFUSE_*, ...)
// 2. Project config (.validator.yaml in current directory or parent)
// 3. User config (~/.config/validator/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)

	return unmarshal(v)
}

// LoadFromPath loads configuration from path instead of the user and project
// files. Environment variables still take precedence.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in secrets
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Search.APIKey = expandEnv(cfg.Search.APIKey)
	cfg.Tracing.PublicKey = expandEnv(cfg.Tracing.PublicKey)
	cfg.Tracing.SecretKey = expandEnv(cfg.Tracing.SecretKey)
	cfg.Session.RedisURL = expandEnv(cfg.Session.RedisURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("invalid session.store %q: want memory, redis or sqlite", c.Session.Store)
	}
	if c.Session.Store == "redis" && c.Session.RedisURL == "" {
		return fmt.Errorf("session.redis_url is required for the redis store")
	}
	if c.Orchestrator.MaxIterations <= 0 {
		return fmt.Errorf("orchestrator.max_iterations must be positive, got %d", c.Orchestrator.MaxIterations)
	}
	if c.Stream.MaxArgumentBytes < 0 {
		return fmt.Errorf("stream.max_argument_bytes must not be negative, got %d", c.Stream.MaxArgumentBytes)
	}
	return nil
}

// bindEnv maps the conventional environment variables onto config keys.
func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("anthropic.use_bedrock", "CLAUDE_CODE_USE_BEDROCK")
	_ = v.BindEnv("anthropic.aws_region", "AWS_REGION")
	_ = v.BindEnv("anthropic.aws_profile", "AWS_PROFILE")
	_ = v.BindEnv("search.api_key", "TAVILY_API_KEY")
	_ = v.BindEnv("tracing.public_key", "LANGFUSE_PUBLIC_KEY")
	_ = v.BindEnv("tracing.secret_key", "LANGFUSE_SECRET_KEY")
	_ = v.BindEnv("tracing.host", "LANGFUSE_HOST")
	_ = v.BindEnv("session.redis_url", "REDIS_URL")
}

// SaveValue sets one key in the config file at path, keeping whatever else
// the file already holds. Only that file is read, so values coming from the
// environment, project overrides or defaults are never written out.
func SaveValue(path, key string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Values flattens cfg into dot-notation keys.
func Values(cfg *Config) map[string]any {
	return map[string]any{
		"anthropic.api_key":           cfg.Anthropic.APIKey,
		"anthropic.use_bedrock":       cfg.Anthropic.UseBedrock,
		"anthropic.aws_region":        cfg.Anthropic.AWSRegion,
		"anthropic.aws_profile":       cfg.Anthropic.AWSProfile,
		"orchestrator.max_iterations": cfg.Orchestrator.MaxIterations,
		"orchestrator.max_tokens":     cfg.Orchestrator.MaxTokens,
		"orchestrator.turn_timeout":   cfg.Orchestrator.TurnTimeout.String(),
		"specialists.agents_file":     cfg.Specialists.AgentsFile,
		"specialists.questions_file":  cfg.Specialists.QuestionsFile,
		"search.api_key":              cfg.Search.APIKey,
		"search.base_url":             cfg.Search.BaseURL,
		"search.timeout":              cfg.Search.Timeout.String(),
		"tracing.public_key":          cfg.Tracing.PublicKey,
		"tracing.secret_key":          cfg.Tracing.SecretKey,
		"tracing.host":                cfg.Tracing.Host,
		"server.addr":                 cfg.Server.Addr,
		"server.shutdown_timeout":     cfg.Server.ShutdownTimeout.String(),
		"server.record_dir":           cfg.Server.RecordDir,
		"session.store":               cfg.Session.Store,
		"session.redis_url":           cfg.Session.RedisURL,
		"session.sqlite_path":         cfg.Session.SQLitePath,
		"stream.max_argument_bytes":   cfg.Stream.MaxArgumentBytes,
		"log.level":                   cfg.Log.Level,
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// GetDataDir returns the directory for local state such as the SQLite store.
func GetDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", appName)
	}
	return filepath.Join(home, ".local", "share", appName)
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()
	for key, value := range Values(d) {
		v.SetDefault(key, value)
	}
}

// getUserConfigDir returns the XDG config directory for the validator.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// findProjectConfig searches for .validator.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, "."+appName+".yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			AWSRegion: "us-east-1",
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations: 20,
			MaxTokens:     8192,
			TurnTimeout:   10 * time.Minute,
		},
		Search: SearchConfig{
			BaseURL: "https://api.tavily.com",
			Timeout: 30 * time.Second,
		},
		Tracing: TracingConfig{
			Host: "https://cloud.langfuse.com",
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 5 * time.Second,
		},
		Session: SessionConfig{
			Store:      "memory",
			SQLitePath: filepath.Join(GetDataDir(), "sessions.db"),
		},
		Stream: StreamConfig{
			MaxArgumentBytes: 1 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
