package config

import (
	"testing"
	"time"
)

func validLocalConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voicecampaign", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Bolna: BolnaConfig{BaseURL: "https://api.bolna.ai"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocalConfig()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	c.Bolna.APIKey = "key"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_ProductionRequiresVendorKey(t *testing.T) {
	c := validLocalConfig()
	c.App.Env = "production"
	c.DB.SSLMode = "require"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without BOLNA_API_KEY")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validLocalConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_PollerDefaults(t *testing.T) {
	c := validLocalConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Poller.Interval != 10*time.Second {
		t.Fatalf("poll interval default = %v, want 10s", c.Poller.Interval)
	}
	if c.Poller.MaxAttempts != 90 {
		t.Fatalf("max attempts default = %d, want 90", c.Poller.MaxAttempts)
	}
	if c.Poller.MaxConsecutiveErrors != 5 {
		t.Fatalf("max consecutive errors default = %d, want 5", c.Poller.MaxConsecutiveErrors)
	}
}

func TestValidate_PollerOverridesKept(t *testing.T) {
	c := validLocalConfig()
	c.Poller = PollerConfig{Interval: 3 * time.Second, MaxAttempts: 20, MaxConsecutiveErrors: 2}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Poller.Interval != 3*time.Second || c.Poller.MaxAttempts != 20 || c.Poller.MaxConsecutiveErrors != 2 {
		t.Fatalf("explicit poller settings overwritten: %+v", c.Poller)
	}
}
