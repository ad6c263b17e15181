package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
	"github.com/WilliamSuiself/remote-mcp-local/internal/tools"
)

// Config holds server configuration loaded from environment variables
type Config struct {
	Port                int           `envconfig:"PORT" default:"8080"`
	BaseURL             string        `envconfig:"BASE_URL" required:"true"`
	RedisURL            string        `envconfig:"REDIS_URL"`
	TokenSecret         string        `envconfig:"TOKEN_SECRET" required:"true"`
	CodeExpiry          time.Duration `envconfig:"CODE_EXPIRY" default:"10m"`
	TokenExpiry         time.Duration `envconfig:"TOKEN_EXPIRY" default:"1h"`
	AssumeAuthenticated bool          `envconfig:"ASSUME_AUTHENTICATED" default:"true"`
	NewsAPIKey          string        `envconfig:"NEWS_API_KEY" required:"true"`
	NewsAPIURL          string        `envconfig:"NEWS_API_URL"`
	TimezoneAPIKey      string        `envconfig:"TIMEZONE_API_KEY" required:"true"`
	TimezoneAPIURL      string        `envconfig:"TIMEZONE_API_URL"`
	ReadHeaderTimeout   time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout         time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout        time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout         time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"info"`
}

// loadConfig reads the environment and validates the result
func loadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading configuration: %w", err)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.NewsAPIURL == "" {
		cfg.NewsAPIURL = tools.DefaultNewsURL
	}
	if cfg.TimezoneAPIURL == "" {
		cfg.TimezoneAPIURL = tools.DefaultTimezoneURL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL %q must be an absolute http(s) URL", c.BaseURL))
	}
	if len(c.TokenSecret) < oauth.MinSecretLength {
		errs = append(errs, fmt.Errorf("TOKEN_SECRET must be at least %d bytes", oauth.MinSecretLength))
	}
	if c.CodeExpiry <= 0 {
		errs = append(errs, errors.New("CODE_EXPIRY must be positive"))
	}
	if c.TokenExpiry <= 0 {
		errs = append(errs, errors.New("TOKEN_EXPIRY must be positive"))
	}
	if strings.TrimSpace(c.NewsAPIKey) == "" {
		errs = append(errs, errors.New("NEWS_API_KEY is required"))
	}
	if strings.TrimSpace(c.TimezoneAPIKey) == "" {
		errs = append(errs, errors.New("TIMEZONE_API_KEY is required"))
	}
	if _, err := c.logLevel(); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

func (c Config) logLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}
