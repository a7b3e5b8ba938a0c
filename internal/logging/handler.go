// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that counts WARN and ERROR
// records in a Prometheus counter while forwarding them unchanged.
package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Categories derived from a record's "category" attribute or message.
const (
	CategoryStore  = "store"
	CategoryQuery  = "query"
	CategoryCache  = "cache"
	CategoryHTTP   = "http"
	CategorySystem = "system"
)

// CountingHandler wraps a slog.Handler and counts records at or above a
// minimum level, labelled by level and category.
type CountingHandler struct {
	inner   slog.Handler
	counter *prometheus.CounterVec
	level   slog.Level
}

// NewCountingHandler counts WARN and above.
func NewCountingHandler(inner slog.Handler, counter *prometheus.CounterVec) *CountingHandler {
	return NewCountingHandlerWithLevel(inner, counter, slog.LevelWarn)
}

// NewCountingHandlerWithLevel counts records at level and above.
func NewCountingHandlerWithLevel(inner slog.Handler, counter *prometheus.CounterVec, level slog.Level) *CountingHandler {
	return &CountingHandler{inner: inner, counter: counter, level: level}
}

// Enabled implements slog.Handler.
func (h *CountingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *CountingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level && h.counter != nil {
		h.counter.WithLabelValues(levelLabel(r.Level), category(r)).Inc()
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *CountingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CountingHandler{inner: h.inner.WithAttrs(attrs), counter: h.counter, level: h.level}
}

// WithGroup implements slog.Handler.
func (h *CountingHandler) WithGroup(name string) slog.Handler {
	return &CountingHandler{inner: h.inner.WithGroup(name), counter: h.counter, level: h.level}
}

func levelLabel(level slog.Level) string {
	if level >= slog.LevelError {
		return "error"
	}
	return "warn"
}

// category returns the "category" attribute, or infers one from the message.
func category(r slog.Record) string {
	var cat string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			cat = a.Value.String()
			return false
		}
		return true
	})
	if cat != "" {
		return cat
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "mutation") || strings.Contains(msg, "fetch") || strings.Contains(msg, "collection"):
		return CategoryQuery
	case strings.Contains(msg, "snapshot") || strings.Contains(msg, "redis") || strings.Contains(msg, "cache"):
		return CategoryCache
	case strings.Contains(msg, "store"):
		return CategoryStore
	case strings.Contains(msg, "request") || strings.Contains(msg, "csrf") || strings.Contains(msg, "rate limit"):
		return CategoryHTTP
	default:
		return CategorySystem
	}
}
