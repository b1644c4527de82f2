package config

import (
	"testing"
	"time"
)

// clearEnv blanks every key Load reads; viper treats empty env vars as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"API_BASE_URL", "API_TIMEOUT", "TOKEN_STORE_DSN", "TOKEN_STORE_KEY",
		"SESSION_CHECK_INTERVAL", "SESSION_EXPIRY_BUFFER", "LOG_LEVEL", "APP_ENV",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:8080/api")
	}
	if cfg.TokenStoreDSN != "sqlite://inventory-client.db" {
		t.Errorf("TokenStoreDSN = %q, want sqlite default", cfg.TokenStoreDSN)
	}
	if cfg.ServiceName != "inventory-client" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "inventory-client")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.CheckInterval() != 5*time.Minute {
		t.Errorf("CheckInterval = %v, want 5m", cfg.CheckInterval())
	}
	if cfg.ExpiryBuffer() != 5*time.Minute {
		t.Errorf("ExpiryBuffer = %v, want 5m", cfg.ExpiryBuffer())
	}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://inventory.example.com/api/")
	t.Setenv("SESSION_CHECK_INTERVAL", "1m")
	t.Setenv("TOKEN_STORE_DSN", "postgres://kiosk@localhost/inventory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://inventory.example.com/api" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
	if cfg.CheckInterval() != time.Minute {
		t.Errorf("CheckInterval = %v, want 1m", cfg.CheckInterval())
	}
	if cfg.TokenStoreDSN != "postgres://kiosk@localhost/inventory" {
		t.Errorf("TokenStoreDSN = %q", cfg.TokenStoreDSN)
	}
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"relative", "/api"},
		{"ftp scheme", "ftp://example.com"},
		{"no host", "http://"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("API_BASE_URL", tc.value)

			cfg, err := Load()
			if err == nil {
				t.Fatal("Load should return error")
			}
			if cfg != nil {
				t.Error("Load should return nil config on error")
			}
		})
	}
}

func TestLoad_ProductionRequiresHTTPS(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_BASE_URL", "http://inventory.example.com")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should reject plain http in production")
	}
	if err.Error() != "config: API_BASE_URL must use https when APP_ENV=production" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDurations_InvalidFallBackToDefaults(t *testing.T) {
	cfg := &Config{
		APITimeout:           "soon",
		SessionCheckInterval: "-1m",
		SessionExpiryBuffer:  "nope",
	}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Timeout())
	}
	if cfg.CheckInterval() != 5*time.Minute {
		t.Errorf("CheckInterval = %v, want 5m", cfg.CheckInterval())
	}
	if cfg.ExpiryBuffer() != 5*time.Minute {
		t.Errorf("ExpiryBuffer = %v, want 5m", cfg.ExpiryBuffer())
	}
}

func TestExpiryBuffer_ZeroAllowed(t *testing.T) {
	cfg := &Config{SessionExpiryBuffer: "0s"}
	if cfg.ExpiryBuffer() != 0 {
		t.Errorf("ExpiryBuffer = %v, want 0", cfg.ExpiryBuffer())
	}
}
