// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

// Package config provides layered application configuration.
//
// Configuration is loaded with Koanf v2 from three sources, in order of
// increasing precedence: built-in defaults, an optional YAML config file,
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Strava   StravaConfig   `koanf:"strava"`
	Sync     SyncConfig     `koanf:"sync"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	BaseURL     string        `koanf:"base_url"`
	Environment string        `koanf:"environment" validate:"oneof=development production test"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// StravaConfig holds upstream Strava API settings.
type StravaConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// BaseURL is the Strava REST API root.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// TokenURL is the OAuth token endpoint used for both the authorization
	// code exchange and refresh grants.
	TokenURL string `koanf:"token_url" validate:"required,url"`

	// AuthorizeURL is the browser-facing OAuth authorization endpoint.
	AuthorizeURL string `koanf:"authorize_url" validate:"required,url"`

	Scopes string `koanf:"scopes"`

	// RequestTimeout bounds every upstream HTTP call.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RateLimitRequests/RateLimitWindow express Strava's application quota
	// (100 requests per 15 minutes on the free tier). The client spreads
	// calls with a token bucket so the quota is never tripped.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// SyncConfig holds the cache cooldown windows. A cached row younger than the
// applicable cooldown is served without an upstream call.
type SyncConfig struct {
	// ProfileCooldown gates athlete profile refetches and the manual
	// /sync trigger.
	ProfileCooldown time.Duration `koanf:"profile_cooldown"`

	// ActivityCooldown gates activity list pages and activity detail rows.
	ActivityCooldown time.Duration `koanf:"activity_cooldown"`

	// HistoricalCooldown applies to list pages whose time window lies
	// entirely in the past; finished activities do not change.
	HistoricalCooldown time.Duration `koanf:"historical_cooldown"`
}

// SecurityConfig holds session, rate limiting and CORS settings.
type SecurityConfig struct {
	// SessionSecret signs the JWT session cookie. Required in production.
	SessionSecret string        `koanf:"session_secret"`
	SessionMaxAge time.Duration `koanf:"session_max_age"`
	CookieName    string        `koanf:"cookie_name"`
	CookieSecure  bool          `koanf:"cookie_secure"`

	// TokenEncryptionKey is an optional base64-encoded master key. When set,
	// stored Strava tokens are encrypted at rest with AES-GCM.
	TokenEncryptionKey string `koanf:"token_encryption_key"`

	RateLimitRequests     int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow       time.Duration `koanf:"rate_limit_window"`
	RateLimitAuthRequests int           `koanf:"rate_limit_auth_requests" validate:"min=1"`
	RateLimitDisabled     bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate checks the configuration for internal consistency. Struct tags
// cover range checks; cross-field rules are enforced by hand.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Strava.ClientID == "" || c.Strava.ClientSecret == "" {
		return errors.New("strava client_id and client_secret are required")
	}

	if c.Security.SessionSecret == "" {
		return errors.New("security session_secret is required")
	}
	if c.IsProduction() && len(c.Security.SessionSecret) < 32 {
		return fmt.Errorf("security session_secret must be at least 32 characters in production (got %d)", len(c.Security.SessionSecret))
	}

	if c.Sync.ProfileCooldown <= 0 || c.Sync.ActivityCooldown <= 0 || c.Sync.HistoricalCooldown <= 0 {
		return errors.New("sync cooldowns must be positive")
	}
	if c.Sync.HistoricalCooldown < c.Sync.ActivityCooldown {
		return errors.New("sync historical_cooldown must not be shorter than activity_cooldown")
	}

	if c.Strava.RequestTimeout <= 0 {
		return errors.New("strava request_timeout must be positive")
	}

	return nil
}
