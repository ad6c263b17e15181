package oauth

import (
	"log/slog"
	"time"
)

// Option configures the provider
type Option func(*Provider)

// WithCodeExpiry sets how long an authorization code stays redeemable
func WithCodeExpiry(d time.Duration) Option {
	return func(p *Provider) {
		p.codeExpiry = d
	}
}

// WithTokenExpiry sets the lifetime of issued access tokens
func WithTokenExpiry(d time.Duration) Option {
	return func(p *Provider) {
		p.tokenExpiry = d
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithLogger sets the provider logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}
