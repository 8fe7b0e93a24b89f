// Package config loads shoeshelf settings from defaults, an optional YAML
// file, and the environment, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings for both the server and the CLI.
type Config struct {
	Addr           string        `yaml:"addr"`
	DBPath         string        `yaml:"db_path"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	ServerURL      string        `yaml:"server_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	Enrich         EnrichConfig  `yaml:"enrich"`
	OpenAI         OpenAIConfig  `yaml:"openai"`
}

// EnrichConfig limits the enrichment endpoint per user.
type EnrichConfig struct {
	RatePerMinute int `yaml:"rate_per_minute"`
	Burst         int `yaml:"burst"`
	// MaxClients caps how many callers are rate limited individually.
	MaxClients int `yaml:"max_clients"`
}

// OpenAIConfig selects the LLM describer. An empty APIKey falls back to the
// catalog describer.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:           ":8080",
		DBPath:         "./data/shoeshelf.db",
		TokenTTL:       24 * time.Hour,
		ServerURL:      "http://localhost:8080",
		RequestTimeout: 15 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
		Enrich: EnrichConfig{
			RatePerMinute: 30,
			Burst:         5,
			MaxClients:    10000,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// Load builds a Config. path may be empty, in which case no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Addr)
	str("DB_PATH", &c.DBPath)
	str("JWT_SECRET", &c.JWTSecret)
	str("SHOESHELF_SERVER", &c.ServerURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.OpenAI.Model)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)

	return errors.Join(
		dur("TOKEN_TTL", &c.TokenTTL),
		dur("REQUEST_TIMEOUT", &c.RequestTimeout),
		num("ENRICH_RATE", &c.Enrich.RatePerMinute),
		num("ENRICH_BURST", &c.Enrich.Burst),
		num("ENRICH_MAX_CLIENTS", &c.Enrich.MaxClients),
	)
}

// Validate checks the settings the server needs.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.Enrich.RatePerMinute <= 0 {
		errs = append(errs, errors.New("enrich.rate_per_minute must be positive"))
	}
	if c.Enrich.Burst <= 0 {
		errs = append(errs, errors.New("enrich.burst must be positive"))
	}
	if c.Enrich.MaxClients <= 0 {
		errs = append(errs, errors.New("enrich.max_clients must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateClient checks the settings the CLI needs.
func (c Config) ValidateClient() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server_url is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	return errors.Join(errs...)
}
