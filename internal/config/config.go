// Package config loads and validates client config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAPITimeout           = 15 * time.Second
	defaultSessionCheckInterval = 5 * time.Minute
	defaultSessionExpiryBuffer  = 5 * time.Minute
)

// Config holds client configuration loaded from the environment.
type Config struct {
	// APIBaseURL is the inventory backend base URL (e.g. https://inventory.example.com/api).
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// APITimeout is the per-request timeout (e.g. "15s").
	APITimeout string `mapstructure:"API_TIMEOUT"`
	// TokenStoreDSN selects the local token store: sqlite://path or postgres://... for shared devices.
	TokenStoreDSN string `mapstructure:"TOKEN_STORE_DSN"`
	// TokenStoreKey, when set, seals persisted tokens at rest. Any non-empty secret; a key is derived from it.
	TokenStoreKey string `mapstructure:"TOKEN_STORE_KEY"`
	// SessionCheckInterval is how often the session guard re-checks the access token (e.g. "5m").
	SessionCheckInterval string `mapstructure:"SESSION_CHECK_INTERVAL"`
	// SessionExpiryBuffer is how close to expiry a token may get before the guard refreshes it (e.g. "5m").
	SessionExpiryBuffer string `mapstructure:"SESSION_EXPIRY_BUFFER"`
	// ActivityPolicyFile optionally replaces the built-in activity log Rego policy.
	ActivityPolicyFile string `mapstructure:"ACTIVITY_POLICY_FILE"`
	// LogLevel is the zap level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("API_TIMEOUT", "15s")
	v.SetDefault("TOKEN_STORE_DSN", "sqlite://inventory-client.db")
	v.SetDefault("TOKEN_STORE_KEY", "")
	v.SetDefault("SESSION_CHECK_INTERVAL", "5m")
	v.SetDefault("SESSION_EXPIRY_BUFFER", "5m")
	v.SetDefault("ACTIVITY_POLICY_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "inventory-client")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("config: API_BASE_URL must be an absolute http(s) URL")
	}
	if cfg.Env == "production" && u.Scheme != "https" {
		return nil, errors.New("config: API_BASE_URL must use https when APP_ENV=production")
	}
	if strings.TrimSpace(cfg.TokenStoreDSN) == "" {
		return nil, errors.New("config: TOKEN_STORE_DSN must be set")
	}

	return &cfg, nil
}

// Timeout parses APITimeout. Returns 15s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.APITimeout, defaultAPITimeout)
}

// CheckInterval parses SessionCheckInterval. Returns 5m if unset or invalid.
func (c *Config) CheckInterval() time.Duration {
	return parseDuration(c.SessionCheckInterval, defaultSessionCheckInterval)
}

// ExpiryBuffer parses SessionExpiryBuffer. Returns 5m if unset or invalid; 0 is allowed.
func (c *Config) ExpiryBuffer() time.Duration {
	d, err := time.ParseDuration(c.SessionExpiryBuffer)
	if err != nil || d < 0 {
		return defaultSessionExpiryBuffer
	}
	return d
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
