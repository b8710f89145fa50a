package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/validator/internal/config"
)

var (
	debugFlag      bool
	logLevelFlag   string
	configFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "validator",
	Short: "Multi-agent startup idea validator",
	Long: `Validator interviews a founder about a startup idea and brings in
specialist agents (market sizing, competition, customers, business model,
risks, go-to-market) to research it.

With no arguments, starts the interactive chat.

Commands:
  serve    run the HTTP API with streaming chat
  chat     interactive terminal chat
  replay   render a recorded turn
  agents   list specialist agents
  config   view or change settings
  init     write starter configuration files`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(nil)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show the full agent trace")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFileFlag, "config", "", "Config file to use instead of the user and project files")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging installs the default slog handler. The flag wins over
// log.level from cfg.
func setupLogging(cfg *config.Config) {
	level := config.LogConfig{Level: "info"}
	if cfg != nil {
		level = cfg.Log
	}
	if logLevelFlag != "" {
		level.Level = logLevelFlag
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.SlogLevel()})
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads settings and applies the configured log level.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFileFlag != "" {
		cfg, err = config.LoadFromPath(configFileFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

// configFilePath is the file `config` writes to.
func configFilePath() string {
	if configFileFlag != "" {
		return configFileFlag
	}
	return config.GetUserConfigPath()
}
