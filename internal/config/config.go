package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string        `env:"PORT,default=8080"`
	DatabaseURL string        `env:"DATABASE_URL,required"`
	DBTimeout   time.Duration `env:"DB_TIMEOUT,default=5s"`

	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	CORSOrigins    []string

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionIssuer string        `env:"SESSION_ISSUER,default=guest-account-service"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=24h"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=10"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	cfg.Port = fallback(cfg.Port, "8080")
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.CORSOrigins = parseCSV(cfg.AllowedOrigins)

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.DBTimeout <= 0 {
		return Config{}, errors.New("DB_TIMEOUT must be positive")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 0 {
		return Config{}, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// SessionsEnabled reports whether guest session tokens should be issued.
func (c Config) SessionsEnabled() bool {
	return c.SessionSecret != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
