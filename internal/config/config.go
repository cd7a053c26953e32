// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Env         string `envconfig:"APP_ENV" default:"development"`
	Port        int    `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"168h"`

	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID" required:"true"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET" required:"true"`
	GoogleCallbackURL  string `envconfig:"GOOGLE_CALLBACK_URL" default:"http://localhost:8080/auth/google/callback"`

	InitialAdminEmail string `envconfig:"INITIAL_ADMIN_EMAIL"`

	FrontendURL    string   `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
	CookieDomain   string   `envconfig:"COOKIE_DOMAIN"`
}

// Load reads configuration from the environment. Outside production a .env
// file is loaded first if present.
func Load() (*Config, error) {
	if env := getAppEnv(); env != "production" {
		if err := godotenv.Load(); err == nil {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.FrontendURL}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether the app runs in production mode. Controls the
// Secure flag on the auth cookie.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	var problems []string

	if len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 characters")
	}
	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		problems = append(problems, "FRONTEND_URL must be a valid URL")
	}
	if _, err := url.ParseRequestURI(c.GoogleCallbackURL); err != nil {
		problems = append(problems, "GOOGLE_CALLBACK_URL must be a valid URL")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MaskSecret renders a secret safe for startup logs.
func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func getAppEnv() string {
	var probe struct {
		Env string `envconfig:"APP_ENV" default:"development"`
	}
	_ = envconfig.Process("", &probe)
	return probe.Env
}
