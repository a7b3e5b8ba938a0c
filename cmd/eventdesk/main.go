// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/config"
	"github.com/olegiv/eventdesk/internal/handler"
	"github.com/olegiv/eventdesk/internal/logging"
	"github.com/olegiv/eventdesk/internal/metrics"
	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/query"
	"github.com/olegiv/eventdesk/internal/render"
	"github.com/olegiv/eventdesk/internal/session"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/internal/version"
	"github.com/olegiv/eventdesk/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "eventdesk - events, venues and comments on a hosted store\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_SESSION_SECRET  Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_SUPABASE_URL    Store endpoint, e.g. https://xyz.supabase.co\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_SUPABASE_KEY    Store access key\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_STORE_DRIVER    supabase|sqlite (default: supabase)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_SQLITE_PATH     Records database for the sqlite driver (default: ./data/eventdesk.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTDESK_REDIS_URL       Redis URL for shared snapshots (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.New(appVersion, appGitCommit, appBuildTime)
	if *showVersion {
		_, _ = fmt.Printf("eventdesk %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	m := metrics.New()
	logger := newLogger(cfg, m)
	slog.SetDefault(logger)

	// Sessions always live in a local database, whatever the record store.
	sessionDB, err := openDB(cfg.SessionDBPath)
	if err != nil {
		return err
	}
	defer closeDB(sessionDB, "sessions")

	st, healthDB, err := newStore(cfg, sessionDB)
	if err != nil {
		return err
	}
	if healthDB != sessionDB {
		defer closeDB(healthDB, "records")
	}
	st = store.Instrument(st, m.ObserveStoreCall)

	backend, backendName, err := cache.NewCache(cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       cfg.CacheTTL,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing snapshot cache: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Error("error closing snapshot cache", "error", err)
		}
	}()
	slog.Info("snapshot cache initialized", "backend", backendName, "ttl", cfg.CacheTTL)

	queries := query.New(st, backend, query.Options{
		SnapshotTTL: cfg.CacheTTL,
		Logger:      logger.With("category", "query"),
		Hooks:       m.QueryHooks(),
	})
	defer func() {
		if err := queries.Close(); err != nil {
			slog.Error("error closing query client", "error", err)
		}
	}()
	if err := m.RegisterQueryStats(queries.Stats); err != nil {
		return fmt.Errorf("registering query metrics: %w", err)
	}

	sessionManager := session.New(sessionDB, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.TemplatesRoot(),
		SessionManager: sessionManager,
		Version:        versionInfo.Version,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))                    // Gzip compression with level 5
	r.Use(chimw.GetHead)                        // Handle HEAD requests for uptime monitoring
	r.Use(middleware.Timeout(30 * time.Second)) // 30 second request timeout
	r.Use(middleware.StripTrailingSlash)        // Redirect /path/ to /path (301)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	securityConfig.ExcludePaths = []string{"/metrics"}
	r.Use(middleware.SecurityHeaders(securityConfig))

	r.Use(sessionManager.LoadAndSave)

	// CSRF protection for form posts; the JSON API is not cookie-authenticated.
	r.Use(middleware.SkipCSRF(handler.RouteAPIPrefix))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	formLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	apiLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	handler.RegisterRoutes(r, handler.Handlers{
		Home:   handler.NewHomeHandler(queries, renderer),
		Events: handler.NewEventsHandler(queries, renderer, sessionManager, cfg.RenderWait),
		Venues: handler.NewVenuesHandler(queries, renderer, sessionManager, cfg.RenderWait),
		API:    handler.NewAPIHandler(queries),
		Health: handler.NewHealthHandler(healthDB, queries, backend, versionInfo.Version),
	}, handler.RouteOptions{
		FormMiddleware: []func(http.Handler) http.Handler{formLimiter.HTMLMiddleware()},
		APIMiddleware:  []func(http.Handler) http.Handler{apiLimiter.Middleware()},
	})

	r.Handle("/metrics", m.Handler())

	// Static assets: cache for 1 day
	staticHandler := http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticRoot())))
	r.Handle("/static/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		staticHandler.ServeHTTP(w, req)
	}))

	// Warm the collections so the first page view does not wait.
	for _, key := range queries.Keys() {
		queries.Read(key)
	}

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second, // Reduced from 120s to mitigate slowloris attacks
		MaxHeaderBytes:    1 << 20,          // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newLogger builds the process logger: colored output in development,
// plain text otherwise, with every warning and error counted.
func newLogger(cfg *config.Config, m *metrics.Metrics) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var h slog.Handler
	if cfg.IsDevelopment() {
		h = tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel, TimeFormat: time.Kitchen})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(logging.NewCountingHandler(h, m.LogRecords))
}

// newStore selects the record store. The returned database is the one the
// health check pings: the records database for the sqlite driver, the
// sessions database otherwise.
func newStore(cfg *config.Config, sessionDB *sql.DB) (store.Client, *sql.DB, error) {
	if cfg.UseSQLiteStore() {
		db, err := openDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("record store initialized", "driver", config.DriverSQLite, "path", cfg.SQLitePath)
		return store.NewSQLiteStore(db), db, nil
	}

	rc := store.NewRESTClient(store.RESTOptions{
		URL:     cfg.SupabaseURL,
		Key:     cfg.SupabaseKey,
		Timeout: cfg.StoreTimeout,
	})
	slog.Info("record store initialized", "driver", config.DriverSupabase, "configured", rc.Configured())
	return rc, sessionDB, nil
}

// openDB opens and migrates a SQLite database, creating its directory.
func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", path)
	db, err := store.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func closeDB(db *sql.DB, name string) {
	if err := db.Close(); err != nil {
		slog.Error("error closing database connection", "db", name, "error", err)
	}
}
