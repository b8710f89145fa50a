package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/validator/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify validator configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/validator/config.yaml (or the file
given with --config). Setting a value writes only that key; values from
the environment and from .validator.yaml are never copied into it.
Project-specific overrides can be placed in .validator.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			displayAllConfig(out, cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			key := strings.ToLower(args[0])
			if err := setConfigValue(cfg, key, args[1]); err != nil {
				return err
			}
			path := configFilePath()
			if err := config.SaveValue(path, key, config.Values(cfg)[key]); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(out, "Set %s = %s in %s\n", key, args[1], path)
			return nil
		}
	},
}

// secretKeys are masked on display.
var secretKeys = map[string]bool{
	"anthropic.api_key":  true,
	"search.api_key":     true,
	"tracing.secret_key": true,
}

// keySources reports where a secret came from, for keys that can come from
// the environment.
var keySources = map[string]func(*config.Config) config.KeySource{
	"anthropic.api_key": config.GetAPIKeySource,
	"search.api_key":    config.GetSearchKeySource,
}

// displayAllConfig prints all configuration values, sorted by key, followed
// by the files they were read from.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	values := config.Values(cfg)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, _ := getConfigValue(cfg, k)
		if source, ok := keySources[k]; ok && values[k] != "" {
			v += fmt.Sprintf(" (from %s)", source(cfg))
		}
		fmt.Fprintf(w, "%s: %s\n", k, v)
	}

	fmt.Fprintf(w, "\nuser config: %s\n", config.GetUserConfigPath())
	project := config.GetProjectConfigPath()
	if project == "" {
		project = "(none)"
	}
	fmt.Fprintf(w, "project config: %s\n", project)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	key = strings.ToLower(key)
	value, ok := config.Values(cfg)[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	s := fmt.Sprint(value)
	if secretKeys[key] {
		if s == "" {
			return "(not set)", nil
		}
		return config.MaskAPIKey(s), nil
	}
	return s, nil
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	key = strings.ToLower(key)
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "orchestrator.max_iterations", "orchestrator.max_tokens", "stream.max_argument_bytes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %w", key, err)
		}
		switch key {
		case "orchestrator.max_iterations":
			cfg.Orchestrator.MaxIterations = n
		case "orchestrator.max_tokens":
			cfg.Orchestrator.MaxTokens = n
		default:
			cfg.Stream.MaxArgumentBytes = n
		}
	case "orchestrator.turn_timeout", "search.timeout", "server.shutdown_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		switch key {
		case "orchestrator.turn_timeout":
			cfg.Orchestrator.TurnTimeout = d
		case "search.timeout":
			cfg.Search.Timeout = d
		default:
			cfg.Server.ShutdownTimeout = d
		}
	case "specialists.agents_file":
		cfg.Specialists.AgentsFile = value
	case "specialists.questions_file":
		cfg.Specialists.QuestionsFile = value
	case "search.api_key":
		cfg.Search.APIKey = value
	case "search.base_url":
		cfg.Search.BaseURL = value
	case "tracing.public_key":
		cfg.Tracing.PublicKey = value
	case "tracing.secret_key":
		cfg.Tracing.SecretKey = value
	case "tracing.host":
		cfg.Tracing.Host = value
	case "server.addr":
		cfg.Server.Addr = value
	case "server.record_dir":
		cfg.Server.RecordDir = value
	case "session.store":
		cfg.Session.Store = value
	case "session.redis_url":
		cfg.Session.RedisURL = value
	case "session.sqlite_path":
		cfg.Session.SQLitePath = value
	case "log.level":
		cfg.Log.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return cfg.Validate()
}
