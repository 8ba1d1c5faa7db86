// Package config handles loading and validating service configuration.
// Values come from an optional YAML file with AUTOMEDIA_-prefixed
// environment variables layered on top; provider API keys additionally
// fall back to the conventional env vars (OPENAI_API_KEY and friends).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level configuration for the generation service.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Providers  ProvidersConfig  `koanf:"providers"`
	Mongo      MongoConfig      `koanf:"mongo"`
	Redis      RedisConfig      `koanf:"redis"`
	Generation GenerationConfig `koanf:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// ProvidersConfig holds per-provider API keys. A provider without a key
// is simply not registered.
type ProvidersConfig struct {
	OpenAIAPIKey    string `koanf:"openai_api_key"`
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	GoogleAPIKey    string `koanf:"google_api_key"`
	DeepSeekAPIKey  string `koanf:"deepseek_api_key"`
}

// MongoConfig holds document store settings. An empty URI selects the
// in-memory store.
type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// RedisConfig holds cache settings. An empty address selects the
// in-process cache.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// GenerationConfig tunes the orchestrator.
type GenerationConfig struct {
	DefaultModel        string        `koanf:"default_model"`
	DefaultTemperature  float64       `koanf:"default_temperature"`
	DefaultMaxTokens    int           `koanf:"default_max_tokens"`
	MaxRetries          int           `koanf:"max_retries"`
	ProviderConcurrency int64         `koanf:"provider_concurrency"`
	StatsTTL            time.Duration `koanf:"stats_ttl"`
	StrictPersistence   bool          `koanf:"strict_persistence"`
}

// Load reads configuration from an optional YAML file, layers environment
// variable overrides on top, and returns a populated Config.
func Load(path string) (*Config, error) {
	// Load .env into the process environment; absent files are fine.
	_ = godotenv.Load()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// AUTOMEDIA_SERVER_PORT -> server.port, and so on.
	if err := k.Load(env.Provider("AUTOMEDIA_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "AUTOMEDIA_")),
			"_", ".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyKeyFallbacks(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyKeyFallbacks fills API keys from the conventional environment
// variables when the config leaves them unset.
func applyKeyFallbacks(cfg *Config) {
	if cfg.Providers.OpenAIAPIKey == "" {
		cfg.Providers.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Providers.AnthropicAPIKey == "" {
		cfg.Providers.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Providers.GoogleAPIKey == "" {
		cfg.Providers.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.Providers.DeepSeekAPIKey == "" {
		cfg.Providers.DeepSeekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "automedia"
	}
}
