// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/query"
)

// Health check statuses.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// pingTimeout bounds each dependency check.
const pingTimeout = 2 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	queries   *query.Client
	backend   cache.Cacher
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. db is the local database
// the checks ping; backend is the snapshot cache.
func NewHealthHandler(db *sql.DB, q *query.Client, backend cache.Cacher, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		queries:   q,
		backend:   backend,
		version:   version,
		startTime: time.Now(),
	}
}

// StartTime returns when the handler (and application) was started.
func (h *HealthHandler) StartTime() time.Time {
	return h.startTime
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status      string           `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	Uptime      string           `json:"uptime"`
	Version     string           `json:"version"`
	Checks      map[string]Check `json:"checks"`
	Collections []query.KeyStats `json:"collections,omitempty"`
	System      *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. Collections that failed to load degrade the
// status without making the service unavailable: pages still render and
// offer a retry.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database": h.checkDatabase(r.Context()),
		"cache":    h.checkCache(r.Context()),
		"store":    h.checkCollections(),
	}

	status := statusHealthy
	code := http.StatusOK
	for name, c := range checks {
		switch {
		case c.Status == statusUnhealthy && name != "store":
			status = statusUnhealthy
			code = http.StatusServiceUnavailable
		case c.Status != statusHealthy && status == statusHealthy:
			status = statusDegraded
		}
	}

	resp := HealthStatus{
		Status:      status,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Version:     h.version,
		Checks:      checks,
		Collections: h.queries.Stats(),
	}
	if r.URL.Query().Get("verbose") == "true" {
		resp.System = getSystemInfo()
	}

	writeJSON(w, code, resp)
}

// Liveness handles GET /health/live - simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready - checks if the service is ready to accept traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	for name, c := range map[string]Check{
		"database": h.checkDatabase(r.Context()),
		"cache":    h.checkCache(r.Context()),
	} {
		if c.Status != statusHealthy {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "not_ready",
				"check":   name,
				"message": c.Message,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// checkDatabase verifies the session database.
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)
	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

// checkCache pings remote snapshot backends; the in-process one is always up.
func (h *HealthHandler) checkCache(ctx context.Context) Check {
	p, ok := h.backend.(cache.Pinger)
	if !ok {
		return Check{Status: statusHealthy, Message: "in-process"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

// checkCollections reports collections whose last load failed. The store
// itself is not called.
func (h *HealthHandler) checkCollections() Check {
	var failed []string
	for _, s := range h.queries.Stats() {
		if s.Status == query.StatusError.String() {
			failed = append(failed, string(s.Key))
		}
	}
	if len(failed) > 0 {
		return Check{Status: statusDegraded, Message: "failed to load: " + strings.Join(failed, ", ")}
	}
	return Check{Status: statusHealthy}
}

func getSystemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to human-readable format.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
