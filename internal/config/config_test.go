package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Orchestrator.MaxIterations != 20 {
		t.Errorf("expected default max_iterations 20, got %d", cfg.Orchestrator.MaxIterations)
	}

	if cfg.Orchestrator.MaxTokens != 8192 {
		t.Errorf("expected default max_tokens 8192, got %d", cfg.Orchestrator.MaxTokens)
	}

	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected server addr ':8000', got %q", cfg.Server.Addr)
	}

	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("expected shutdown timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}

	if cfg.Session.Store != "memory" {
		t.Errorf("expected session store 'memory', got %q", cfg.Session.Store)
	}

	if cfg.Stream.MaxArgumentBytes != 1<<20 {
		t.Errorf("expected max_argument_bytes 1MiB, got %d", cfg.Stream.MaxArgumentBytes)
	}

	if cfg.Tracing.Enabled() {
		t.Error("expected tracing to be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	for _, env := range []string{"ANTHROPIC_API_KEY", "CLAUDE_CODE_USE_BEDROCK", "LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY"} {
		t.Setenv(env, "")
	}
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  use_bedrock: true
orchestrator:
  max_iterations: 5
  turn_timeout: 2m
specialists:
  agents_file: /etc/validator/agents.yaml
search:
  timeout: 10s
tracing:
  public_key: pk-lf-1
  secret_key: sk-lf-1
session:
  store: sqlite
  sqlite_path: /tmp/sessions.db
stream:
  max_argument_bytes: 0
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if !cfg.Anthropic.UseBedrock {
		t.Error("expected use_bedrock to be true")
	}

	if cfg.Orchestrator.MaxIterations != 5 {
		t.Errorf("expected max_iterations 5, got %d", cfg.Orchestrator.MaxIterations)
	}

	if cfg.Orchestrator.TurnTimeout != 2*time.Minute {
		t.Errorf("expected turn_timeout 2m, got %v", cfg.Orchestrator.TurnTimeout)
	}

	// Unset keys keep their defaults
	if cfg.Orchestrator.MaxTokens != 8192 {
		t.Errorf("expected default max_tokens 8192, got %d", cfg.Orchestrator.MaxTokens)
	}

	if cfg.Specialists.AgentsFile != "/etc/validator/agents.yaml" {
		t.Errorf("expected agents_file override, got %q", cfg.Specialists.AgentsFile)
	}

	if cfg.Search.Timeout != 10*time.Second {
		t.Errorf("expected search timeout 10s, got %v", cfg.Search.Timeout)
	}

	if !cfg.Tracing.Enabled() {
		t.Error("expected tracing to be enabled")
	}

	if cfg.Session.Store != "sqlite" || cfg.Session.SQLitePath != "/tmp/sessions.db" {
		t.Errorf("expected sqlite store at /tmp/sessions.db, got %q at %q", cfg.Session.Store, cfg.Session.SQLitePath)
	}

	if cfg.Stream.MaxArgumentBytes != 0 {
		t.Errorf("expected max_argument_bytes 0, got %d", cfg.Stream.MaxArgumentBytes)
	}

	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Log.SlogLevel())
	}
}

func TestLoadFromPathInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad store", "session:\n  store: postgres\n", "session.store"},
		{"redis without url", "session:\n  store: redis\n", "redis_url"},
		{"zero iterations", "orchestrator:\n  max_iterations: 0\n", "max_iterations"},
		{"negative cap", "stream:\n  max_argument_bytes: -1\n", "max_argument_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}

			_, err := LoadFromPath(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "expanded-value")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestLoadFromPathExpandsSecrets(t *testing.T) {
	t.Setenv("VALIDATOR_TEST_TAVILY", "tvly-123")
	t.Setenv("TAVILY_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "search:\n  api_key: ${VALIDATOR_TEST_TAVILY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Search.APIKey != "tvly-123" {
		t.Errorf("expected expanded search key, got %q", cfg.Search.APIKey)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir := getUserConfigDir()
	expected := "/custom/config/validator"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestGetDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	if dir := GetDataDir(); dir != "/custom/data/validator" {
		t.Errorf("expected %q, got %q", "/custom/data/validator", dir)
	}
}

func TestSaveValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-only-0123456789")
	t.Setenv("REDIS_URL", "redis://env-only:6379")

	path := GetUserConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0600); err != nil {
		t.Fatalf("write user config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-env-only-0123456789" {
		t.Fatalf("expected env api key to be loaded, got %q", cfg.Anthropic.APIKey)
	}

	cfg.Orchestrator.TurnTimeout = 90 * time.Second
	if err := SaveValue(path, "orchestrator.turn_timeout", Values(cfg)["orchestrator.turn_timeout"]); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read user config: %v", err)
	}
	for _, leaked := range []string{"env-only", "api_key", "redis_url", "max_iterations"} {
		if strings.Contains(string(data), leaked) {
			t.Errorf("user config contains %q:\n%s", leaked, data)
		}
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("REDIS_URL", "")
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Server.Addr != ":9090" {
		t.Errorf("expected addr ':9090' kept, got %q", loaded.Server.Addr)
	}
	if loaded.Orchestrator.TurnTimeout != 90*time.Second {
		t.Errorf("expected turn_timeout 90s, got %v", loaded.Orchestrator.TurnTimeout)
	}
}

func TestSaveValueCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := SaveValue(path, "log.level", "debug"); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", loaded.Log.Level)
	}
}

func TestLoadFromPathEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("search:\n  api_key: tvly-from-file\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TAVILY_API_KEY", "tvly-from-env")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Search.APIKey != "tvly-from-env" {
		t.Errorf("expected env search key, got %q", cfg.Search.APIKey)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := (LogConfig{Level: tt.in}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
