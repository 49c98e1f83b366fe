package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the integrity engine.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Analysis pipeline tuning
	Analysis AnalysisConfig `yaml:"analysis"`

	// Provider endpoints and models. Credentials live in the settings store, not here.
	Providers ProvidersConfig `yaml:"providers"`

	// SettingsCacheTTL bounds how long a settings snapshot is served before it is rebuilt.
	// Writes through the settings service invalidate the snapshot immediately.
	SettingsCacheTTL time.Duration `yaml:"settings_cache_ttl" env:"SETTINGS_CACHE_TTL" env-default:"30s"`

	// CredentialsKey encrypts secret settings (provider API keys).
	// Must be a 32-byte key, base64 encoded. Generate with: openssl rand -base64 32
	CredentialsKey string `yaml:"-" env:"INTEGRITY_CREDENTIALS_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"integrity"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"integrity_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AnalysisConfig controls the external analysis call and the similarity scan.
type AnalysisConfig struct {
	// MockDelay simulates provider latency for the mock provider.
	MockDelay time.Duration `yaml:"mock_delay" env:"ANALYSIS_MOCK_DELAY" env-default:"1500ms"`
	// ProviderTimeout bounds a single provider request.
	ProviderTimeout time.Duration `yaml:"provider_timeout" env:"ANALYSIS_PROVIDER_TIMEOUT" env-default:"60s"`
	// MaxRetries for transient provider failures (0 disables retries).
	MaxRetries int `yaml:"max_retries" env:"ANALYSIS_MAX_RETRIES" env-default:"2"`
	// RetryInitialDelay is the first backoff delay.
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay" env:"ANALYSIS_RETRY_INITIAL_DELAY" env-default:"500ms"`
	// CircuitThreshold is the number of consecutive provider failures before the circuit opens.
	CircuitThreshold int `yaml:"circuit_threshold" env:"ANALYSIS_CIRCUIT_THRESHOLD" env-default:"5"`
	// CircuitResetAfter is how long an open circuit waits before letting a probe through.
	CircuitResetAfter time.Duration `yaml:"circuit_reset_after" env:"ANALYSIS_CIRCUIT_RESET_AFTER" env-default:"30s"`
	// SimilarityCorpusSize caps how many prior submissions the similarity scan compares against.
	SimilarityCorpusSize int `yaml:"similarity_corpus_size" env:"ANALYSIS_SIMILARITY_CORPUS_SIZE" env-default:"200"`
}

// ProviderEndpoint is the base URL and model for one analysis provider.
type ProviderEndpoint struct {
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	Model   string `yaml:"model" env:"MODEL"`
}

// ProvidersConfig holds endpoints for every supported analysis provider.
type ProvidersConfig struct {
	OpenAI    ProviderEndpoint `yaml:"openai" env-prefix:"OPENAI_"`
	Anthropic ProviderEndpoint `yaml:"anthropic" env-prefix:"ANTHROPIC_"`
	Gemini    ProviderEndpoint `yaml:"gemini" env-prefix:"GEMINI_"`
	DeepSeek  ProviderEndpoint `yaml:"deepseek" env-prefix:"DEEPSEEK_"`
}

// DefaultProviders returns the public endpoints and default models for each provider.
func DefaultProviders() ProvidersConfig {
	return ProvidersConfig{
		OpenAI:    ProviderEndpoint{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		Anthropic: ProviderEndpoint{BaseURL: "https://api.anthropic.com/v1", Model: "claude-3-5-haiku-latest"},
		Gemini:    ProviderEndpoint{BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", Model: "gemini-2.0-flash"},
		DeepSeek:  ProviderEndpoint{BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
	}
}

// Load reads configuration from configPath (if it exists) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(configPath, version string) (*Config, error) {
	cfg := &Config{
		Version:   version,
		Providers: DefaultProviders(),
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", configPath, err)
	}

	cfg.Providers.fillDefaults(DefaultProviders())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.CredentialsKey == "" {
		return fmt.Errorf("INTEGRITY_CREDENTIALS_KEY is required")
	}
	if c.Analysis.MaxRetries < 0 {
		return fmt.Errorf("analysis.max_retries must not be negative")
	}
	if c.Analysis.SimilarityCorpusSize < 0 {
		return fmt.Errorf("analysis.similarity_corpus_size must not be negative")
	}
	return nil
}

func (p *ProvidersConfig) fillDefaults(defaults ProvidersConfig) {
	fill := func(dst *ProviderEndpoint, def ProviderEndpoint) {
		if dst.BaseURL == "" {
			dst.BaseURL = def.BaseURL
		}
		if dst.Model == "" {
			dst.Model = def.Model
		}
	}
	fill(&p.OpenAI, defaults.OpenAI)
	fill(&p.Anthropic, defaults.Anthropic)
	fill(&p.Gemini, defaults.Gemini)
	fill(&p.DeepSeek, defaults.DeepSeek)
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the database URL form used by golang-migrate.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
