package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.AllowedDomain != "iima.ac.in" {
		t.Errorf("allowed domain = %q", cfg.Auth.AllowedDomain)
	}
	if cfg.Welcome.Text != "Siuuuu" {
		t.Errorf("welcome text = %q", cfg.Welcome.Text)
	}
	if cfg.OAuthConfigured() {
		t.Error("oauth reported configured without credentials")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("AUTH_ALLOWED_DOMAIN", "example.org")
	t.Setenv("AUTH_GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("AUTH_GOOGLE_CLIENT_SECRET", "client-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Auth.AllowedDomain != "example.org" {
		t.Errorf("allowed domain = %q", cfg.Auth.AllowedDomain)
	}
	if !cfg.OAuthConfigured() {
		t.Error("oauth should be configured")
	}
	// Callback falls back to the base URL.
	if !strings.HasSuffix(cfg.Auth.GoogleCallbackURL, "/auth/google/callback") {
		t.Errorf("callback url = %q", cfg.Auth.GoogleCallbackURL)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config { return defaultConfig() }

	t.Run("port out of range", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for port 0")
		}
	})

	t.Run("short jwt secret", func(t *testing.T) {
		cfg := base()
		cfg.Auth.JWTSecret = "short"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for short secret")
		}
	})

	t.Run("missing welcome text", func(t *testing.T) {
		cfg := base()
		cfg.Welcome.Text = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for empty welcome text")
		}
	})
}
