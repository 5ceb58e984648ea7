// Package config loads application configuration with koanf.
//
// Configuration is layered, later layers overriding earlier ones:
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (SERVER_PORT, AUTH_JWT_SECRET, ...)
//
// The env var name maps to the koanf path by lowercasing and turning the
// first underscore into a dot: AUTH_GOOGLE_CLIENT_ID → auth.google_client_id.
//
// The Config value is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/scrapbook/config.yaml",
}

// ConfigPathEnvVar overrides the config file location when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Welcome  WelcomeConfig  `koanf:"welcome"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port    int    `koanf:"port"`
	BaseURL string `koanf:"base_url"` // public origin, used in share links
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// AuthConfig holds identity-provider credentials, session signing, and the
// sign-in policy knobs.
type AuthConfig struct {
	JWTSecret          string `koanf:"jwt_secret"`
	GoogleClientID     string `koanf:"google_client_id"`
	GoogleClientSecret string `koanf:"google_client_secret"`
	GoogleCallbackURL  string `koanf:"google_callback_url"`

	// AllowedDomain is the email domain permitted to sign in at all
	// (the domain policy collaborator). Empty disables the domain check.
	AllowedDomain string `koanf:"allowed_domain"`

	// Admin console credentials. AdminPasswordHash is a bcrypt hash;
	// generate one with: htpasswd -bnBC 12 "" <password> | tr -d ':'
	AdminLoginID      string `koanf:"admin_login_id"`
	AdminPasswordHash string `koanf:"admin_password_hash"`

	// DevLogin enables POST /auth/dev, which provisions a user from a bare
	// email without the OAuth handshake. Local development only.
	DevLogin bool `koanf:"dev_login"`
}

// WelcomeConfig describes the sentinel author and text of the baseline
// welcome entry placed on every member's page.
type WelcomeConfig struct {
	AuthorEmail string `koanf:"author_email"`
	AuthorName  string `koanf:"author_name"`
	Text        string `koanf:"text"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path: "data/scrapbook.db",
		},
		Auth: AuthConfig{
			AllowedDomain: "iima.ac.in",
			DevLogin:      false,
		},
		Welcome: WelcomeConfig{
			AuthorEmail: "d25@iima.ac.in",
			AuthorName:  "D25",
			Text:        "Siuuuu",
		},
	}
}

// Load builds the Config from defaults, an optional YAML file, and env vars.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	// SERVER_PORT → server.port, AUTH_GOOGLE_CLIENT_ID → auth.google_client_id
	envProvider := env.Provider("", ".", func(s string) string {
		return strings.Replace(strings.ToLower(s), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks invariants that would otherwise fail much later at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Welcome.AuthorEmail == "" || c.Welcome.Text == "" {
		return fmt.Errorf("welcome.author_email and welcome.text must not be empty")
	}
	// Callback defaults to the base URL when the provider is configured.
	if c.Auth.GoogleClientID != "" && c.Auth.GoogleCallbackURL == "" {
		c.Auth.GoogleCallbackURL = strings.TrimSuffix(c.Server.BaseURL, "/") + "/auth/google/callback"
	}
	return nil
}

// OAuthConfigured reports whether Google sign-in can be offered.
func (c *Config) OAuthConfigured() bool {
	return c.Auth.GoogleClientID != "" && c.Auth.GoogleClientSecret != ""
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
