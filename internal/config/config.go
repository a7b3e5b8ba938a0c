// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"EVENTDESK_ENV" envDefault:"development"`
	LogLevel   string `env:"EVENTDESK_LOG_LEVEL" envDefault:"info"`
	ServerHost string `env:"EVENTDESK_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"EVENTDESK_SERVER_PORT" envDefault:"8080"`

	SessionSecret string `env:"EVENTDESK_SESSION_SECRET,required"`
	SessionDBPath string `env:"EVENTDESK_SESSION_DB_PATH" envDefault:"./data/sessions.db"`

	// Remote store
	StoreDriver  string        `env:"EVENTDESK_STORE_DRIVER" envDefault:"supabase"`
	SupabaseURL  string        `env:"EVENTDESK_SUPABASE_URL"`
	SupabaseKey  string        `env:"EVENTDESK_SUPABASE_KEY"`
	SQLitePath   string        `env:"EVENTDESK_SQLITE_PATH" envDefault:"./data/eventdesk.db"`
	StoreTimeout time.Duration `env:"EVENTDESK_STORE_TIMEOUT" envDefault:"0s"` // 0 = calls may hang

	// Views
	RenderWait time.Duration `env:"EVENTDESK_RENDER_WAIT" envDefault:"5s"`

	// Snapshot cache
	RedisURL    string        `env:"EVENTDESK_REDIS_URL"`
	CachePrefix string        `env:"EVENTDESK_CACHE_PREFIX" envDefault:"eventdesk:"`
	CacheTTL    time.Duration `env:"EVENTDESK_CACHE_TTL" envDefault:"0s"` // 0 = until invalidated

	// Mutation rate limiting, per client IP
	RateLimit float64 `env:"EVENTDESK_RATE_LIMIT" envDefault:"5"`
	RateBurst int     `env:"EVENTDESK_RATE_BURST" envDefault:"20"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if snapshots are shared through Redis.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseSQLiteStore returns true if records live in the local database.
func (c Config) UseSQLiteStore() bool {
	return c.StoreDriver == DriverSQLite
}

// SupabaseConfigured reports whether both endpoint and key are set.
func (c Config) SupabaseConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("EVENTDESK_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("EVENTDESK_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("EVENTDESK_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case DriverSupabase, DriverSQLite:
	default:
		return nil, fmt.Errorf("EVENTDESK_STORE_DRIVER must be %q or %q, got %q",
			DriverSupabase, DriverSQLite, cfg.StoreDriver)
	}

	// A missing endpoint is not fatal: every store call then fails with a
	// remote error that the views display.
	if cfg.StoreDriver == DriverSupabase && !cfg.SupabaseConfigured() {
		slog.Warn("EVENTDESK_SUPABASE_URL or EVENTDESK_SUPABASE_KEY is not set; store calls will fail")
	}

	if cfg.StoreTimeout < 0 || cfg.RenderWait < 0 || cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("durations must not be negative")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return nil, fmt.Errorf("EVENTDESK_RATE_LIMIT and EVENTDESK_RATE_BURST must be positive")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
