package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when PATHOS_CONFIG_PATH is unset.
const DefaultConfigPath = "~/.config/pathos/config.yaml"

// Generator providers.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Sync      SyncConfig      `yaml:"sync"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
}

// ClientConfig contains settings for the CLI's backend client.
type ClientConfig struct {
	APIURL          string   `yaml:"api_url"`
	DBPath          string   `yaml:"db_path"`
	Timeout         Duration `yaml:"timeout"`
	GenerateTimeout Duration `yaml:"generate_timeout"`
}

// SyncConfig contains progress sync and retry settings.
type SyncConfig struct {
	Timeout       Duration `yaml:"timeout"`
	RetryInterval Duration `yaml:"retry_interval"`
	MaxAttempts   int      `yaml:"max_attempts"`
	BatchSize     int      `yaml:"batch_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig contains settings for the reference backend.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	DBPath          string   `yaml:"db_path"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// GeneratorConfig contains roadmap generator settings.
type GeneratorConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"-"` // env-only, never in YAML
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := ExpandHome(getEnv("PATHOS_CONFIG_PATH", DefaultConfigPath))

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and the --config flag.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	// File must exist for this function
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Client: ClientConfig{
			APIURL:          "http://localhost:8000",
			DBPath:          "~/.pathos/pathos.db",
			Timeout:         Duration(30 * time.Second),
			GenerateTimeout: Duration(120 * time.Second),
		},
		Sync: SyncConfig{
			Timeout:       Duration(30 * time.Second),
			RetryInterval: Duration(1 * time.Minute),
			MaxAttempts:   10,
			BatchSize:     50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port:            8000,
			DBPath:          "data/pathos.db",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(150 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Generator: GeneratorConfig{
			Provider: ProviderMock,
			BaseURL:  "https://openrouter.ai/api/v1",
			Model:    "openai/gpt-4o-mini",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Client
	if v := os.Getenv("PATHOS_API_URL"); v != "" {
		cfg.Client.APIURL = v
	}
	if v := os.Getenv("PATHOS_DB_PATH"); v != "" {
		cfg.Client.DBPath = v
	}
	envDuration("PATHOS_TIMEOUT", &cfg.Client.Timeout)
	envDuration("PATHOS_GENERATE_TIMEOUT", &cfg.Client.GenerateTimeout)

	// Sync
	envDuration("PATHOS_SYNC_TIMEOUT", &cfg.Sync.Timeout)
	envDuration("PATHOS_SYNC_RETRY_INTERVAL", &cfg.Sync.RetryInterval)
	envInt("PATHOS_SYNC_MAX_ATTEMPTS", &cfg.Sync.MaxAttempts)
	envInt("PATHOS_SYNC_BATCH_SIZE", &cfg.Sync.BatchSize)

	// Log
	if v := os.Getenv("PATHOS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PATHOS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Server
	envInt("PATHOS_PORT", &cfg.Server.Port)
	if v := os.Getenv("PATHOS_SERVER_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}

	// Generator (OPENROUTER_API_KEY matches the hosted provider's convention)
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Generator.APIKey = v
	}
	if v := os.Getenv("PATHOS_GENERATOR_PROVIDER"); v != "" {
		cfg.Generator.Provider = v
	}
	if v := os.Getenv("PATHOS_GENERATOR_BASE_URL"); v != "" {
		cfg.Generator.BaseURL = v
	}
	if v := os.Getenv("PATHOS_GENERATOR_MODEL"); v != "" {
		cfg.Generator.Model = v
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// validate checks that configuration values are usable.
func (c *Config) validate() error {
	u, err := url.Parse(c.Client.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("client.api_url %q is not an absolute URL", c.Client.APIURL)
	}
	if c.Client.Timeout <= 0 || c.Client.GenerateTimeout <= 0 || c.Sync.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Sync.RetryInterval <= 0 {
		return errors.New("sync.retry_interval must be positive")
	}
	if c.Sync.MaxAttempts < 1 || c.Sync.BatchSize < 1 {
		return errors.New("sync.max_attempts and sync.batch_size must be at least 1")
	}
	switch c.Generator.Provider {
	case ProviderMock, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown generator provider %q", c.Generator.Provider)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
