// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"time"
)

// Backend names reported by NewCache.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and configures a snapshot backend.
type Config struct {
	// RedisURL selects the Redis backend when set.
	RedisURL string

	// Prefix namespaces Redis keys.
	Prefix string

	// DefaultTTL bounds snapshot lifetime; 0 keeps snapshots until invalidated.
	DefaultTTL time.Duration

	// MaxSize caps the memory backend, 0 = unlimited.
	MaxSize int

	CleanupInterval time.Duration

	// FallbackToMemory uses the memory backend when Redis is unreachable
	// instead of failing.
	FallbackToMemory bool
}

// DefaultConfig returns an unbounded, non-expiring memory configuration.
func DefaultConfig() Config {
	return Config{
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}
}

// NewCache creates the configured backend and returns its name.
func NewCache(cfg Config, logger *slog.Logger) (Cacher, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			logger.Info("snapshot cache using redis", "url", SanitizeRedisURL(cfg.RedisURL))
			return rc, BackendRedis, nil
		}
		if !cfg.FallbackToMemory {
			return nil, "", fmt.Errorf("connecting to redis at %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
		}
		logger.Warn("redis unavailable, falling back to memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	}), BackendMemory, nil
}
