package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"` // bearer key for admin endpoints
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // snapshot cache TTL
}

type ProvidersConfig struct {
	OpenAIKey      string `yaml:"openai_key"`
	OpenAIModel    string `yaml:"openai_model"`
	GeminiKey      string `yaml:"gemini_key"`
	GeminiURL      string `yaml:"gemini_url"`
	GeminiModel    string `yaml:"gemini_model"`
	AnthropicKey   string `yaml:"anthropic_key"`
	AnthropicModel string `yaml:"anthropic_model"`

	Default         string   `yaml:"default"`          // default provider name
	Priority        []string `yaml:"priority"`         // fallback order
	ConcurrentLimit int      `yaml:"concurrent_limit"` // max concurrent provider calls
	MaxTokens       int      `yaml:"max_tokens"`
}

type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	BackoffBase  time.Duration `yaml:"backoff_base"`
	BackoffLimit time.Duration `yaml:"backoff_limit"` // cap on a single delay
}

type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
	Limit  int           `yaml:"limit"`
}

type JobsConfig struct {
	Workers         int           `yaml:"workers"`
	PollInterval    time.Duration `yaml:"poll_interval"` // claim loop tick
	MaxAttempts     int           `yaml:"max_attempts"`  // whole-pipeline retries
	RetentionAge    time.Duration `yaml:"retention_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Providers ProvidersConfig `yaml:"providers"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Jobs      JobsConfig      `yaml:"jobs"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Providers.OpenAIKey == "" && cfg.Providers.GeminiKey == "" && cfg.Providers.AnthropicKey == "" {
		return nil, errors.New("at least one provider key is required")
	}
	for _, p := range cfg.Providers.Priority {
		switch strings.ToLower(p) {
		case "openai", "gemini", "anthropic", "noop":
		default:
			return nil, fmt.Errorf("unknown provider %q in providers.priority", p)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 5 * time.Second
	}
	if cfg.Providers.OpenAIModel == "" {
		cfg.Providers.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Providers.GeminiModel == "" {
		cfg.Providers.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.Providers.AnthropicModel == "" {
		cfg.Providers.AnthropicModel = "claude-sonnet-4-20250514"
	}
	if cfg.Providers.ConcurrentLimit <= 0 {
		cfg.Providers.ConcurrentLimit = 16
	}
	if cfg.Providers.MaxTokens <= 0 {
		cfg.Providers.MaxTokens = 4096
	}
	if len(cfg.Providers.Priority) == 0 {
		cfg.Providers.Priority = []string{"openai", "gemini", "anthropic"}
	}
	if cfg.Providers.Default == "" {
		cfg.Providers.Default = cfg.Providers.Priority[0]
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.BackoffBase <= 0 {
		cfg.Retry.BackoffBase = 500 * time.Millisecond
	}
	if cfg.Retry.BackoffLimit <= 0 {
		cfg.Retry.BackoffLimit = 30 * time.Second
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 10
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.PollInterval <= 0 {
		cfg.Jobs.PollInterval = 500 * time.Millisecond
	}
	if cfg.Jobs.MaxAttempts <= 0 {
		cfg.Jobs.MaxAttempts = 3
	}
	if cfg.Jobs.RetentionAge <= 0 {
		cfg.Jobs.RetentionAge = 7 * 24 * time.Hour
	}
	if cfg.Jobs.CleanupInterval <= 0 {
		cfg.Jobs.CleanupInterval = time.Hour
	}
}
