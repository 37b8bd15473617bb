package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// Helper to clear all config-related env vars and point the config path
// at a file that does not exist.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"PATHOS_API_URL",
		"PATHOS_DB_PATH",
		"PATHOS_TIMEOUT",
		"PATHOS_GENERATE_TIMEOUT",
		"PATHOS_SYNC_TIMEOUT",
		"PATHOS_SYNC_RETRY_INTERVAL",
		"PATHOS_SYNC_MAX_ATTEMPTS",
		"PATHOS_SYNC_BATCH_SIZE",
		"PATHOS_LOG_LEVEL",
		"PATHOS_LOG_FORMAT",
		"PATHOS_PORT",
		"PATHOS_SERVER_DB_PATH",
		"OPENROUTER_API_KEY",
		"PATHOS_GENERATOR_PROVIDER",
		"PATHOS_GENERATOR_BASE_URL",
		"PATHOS_GENERATOR_MODEL",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}
	t.Setenv("PATHOS_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
}

// dur converts Duration to time.Duration for comparison
func dur(d Duration) time.Duration {
	return time.Duration(d)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// Test: Default values when no config file and no env vars
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Client defaults
	if cfg.Client.APIURL != "http://localhost:8000" {
		t.Errorf("Client.APIURL = %q", cfg.Client.APIURL)
	}
	if dur(cfg.Client.Timeout) != 30*time.Second {
		t.Errorf("Client.Timeout = %v, want 30s", cfg.Client.Timeout)
	}
	if dur(cfg.Client.GenerateTimeout) != 120*time.Second {
		t.Errorf("Client.GenerateTimeout = %v, want 120s", cfg.Client.GenerateTimeout)
	}

	// Sync defaults
	if dur(cfg.Sync.RetryInterval) != time.Minute {
		t.Errorf("Sync.RetryInterval = %v, want 1m", cfg.Sync.RetryInterval)
	}
	if cfg.Sync.MaxAttempts != 10 || cfg.Sync.BatchSize != 50 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}

	// Server defaults
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if dur(cfg.Server.WriteTimeout) <= dur(cfg.Client.GenerateTimeout) {
		t.Errorf("Server.WriteTimeout = %v must exceed generation timeout", cfg.Server.WriteTimeout)
	}

	// Log defaults
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	// Generator defaults
	if cfg.Generator.Provider != ProviderMock {
		t.Errorf("Generator.Provider = %q, want mock", cfg.Generator.Provider)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)

	t.Setenv("PATHOS_API_URL", "https://api.example.com")
	t.Setenv("PATHOS_DB_PATH", "/custom/path.db")
	t.Setenv("PATHOS_TIMEOUT", "5s")
	t.Setenv("PATHOS_SYNC_MAX_ATTEMPTS", "3")
	t.Setenv("PATHOS_LOG_LEVEL", "debug")
	t.Setenv("PATHOS_PORT", "9090")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("PATHOS_GENERATOR_PROVIDER", "openai")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Client.APIURL != "https://api.example.com" {
		t.Errorf("Client.APIURL = %q", cfg.Client.APIURL)
	}
	if cfg.Client.DBPath != "/custom/path.db" {
		t.Errorf("Client.DBPath = %q", cfg.Client.DBPath)
	}
	if dur(cfg.Client.Timeout) != 5*time.Second {
		t.Errorf("Client.Timeout = %v, want 5s", cfg.Client.Timeout)
	}
	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("Sync.MaxAttempts = %d, want 3", cfg.Sync.MaxAttempts)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Generator.APIKey != "sk-or-test" || cfg.Generator.Provider != ProviderOpenAI {
		t.Errorf("Generator = %+v", cfg.Generator)
	}
}

// Test: Invalid env values are ignored
func TestLoad_InvalidEnvValueIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PATHOS_PORT", "not-a-port")
	t.Setenv("PATHOS_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000 (default)", cfg.Server.Port)
	}
	if dur(cfg.Client.Timeout) != 30*time.Second {
		t.Errorf("Client.Timeout = %v, want 30s (default)", cfg.Client.Timeout)
	}
}

func TestLoadFromFile_ValidYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
client:
  api_url: https://pathos.example.com
  generate_timeout: 90s
sync:
  retry_interval: 30s
  batch_size: 10
server:
  port: 9999
generator:
  provider: openai
  model: test-model
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Client.APIURL != "https://pathos.example.com" {
		t.Errorf("Client.APIURL = %q", cfg.Client.APIURL)
	}
	if dur(cfg.Client.GenerateTimeout) != 90*time.Second {
		t.Errorf("Client.GenerateTimeout = %v, want 90s", cfg.Client.GenerateTimeout)
	}
	if dur(cfg.Sync.RetryInterval) != 30*time.Second || cfg.Sync.BatchSize != 10 {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Generator.Model != "test-model" {
		t.Errorf("Generator.Model = %q", cfg.Generator.Model)
	}

	// Unset values keep their defaults
	if cfg.Sync.MaxAttempts != 10 {
		t.Errorf("Sync.MaxAttempts = %d, want 10", cfg.Sync.MaxAttempts)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "server:\n  port: 7000\n")
	t.Setenv("PATHOS_CONFIG_PATH", path)
	t.Setenv("PATHOS_PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Server.Port = %d, want 7100", cfg.Server.Port)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "client: [", "parsing config file"},
		{"invalid duration", "client:\n  timeout: forever\n", "invalid duration"},
		{"relative api url", "client:\n  api_url: localhost\n", "not an absolute URL"},
		{"zero timeout", "client:\n  timeout: 0s\n", "timeouts must be positive"},
		{"zero batch", "sync:\n  batch_size: 0\n", "batch_size"},
		{"unknown provider", "generator:\n  provider: crystal-ball\n", "unknown generator provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFile() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	clearEnv(t)

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestConfig_SecretsNotInYAML(t *testing.T) {
	cfg := newDefaults()
	cfg.Generator.APIKey = "secret-key"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "secret-key") {
		t.Errorf("YAML contains Generator.APIKey secret: %s", data)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandHome("~/.pathos/pathos.db"); got != filepath.Join(home, ".pathos", "pathos.db") {
		t.Errorf("ExpandHome() = %q", got)
	}
	if got := ExpandHome("/abs/path.db"); got != "/abs/path.db" {
		t.Errorf("ExpandHome() = %q", got)
	}
	if got := ExpandHome("~user/x"); got != "~user/x" {
		t.Errorf("ExpandHome() = %q", got)
	}
}
