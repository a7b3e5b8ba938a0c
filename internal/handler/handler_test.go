// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/query"
	"github.com/olegiv/eventdesk/internal/render"
	"github.com/olegiv/eventdesk/internal/store"
	"github.com/olegiv/eventdesk/web"
)

// flakyStore fails every List while failing is set and every Insert while
// rejecting is set.
type flakyStore struct {
	store.Client
	failing   atomic.Bool
	rejecting atomic.Bool
}

func (s *flakyStore) Insert(ctx context.Context, table string, record any) ([]byte, error) {
	if s.rejecting.Load() {
		return nil, &store.RemoteError{Op: "insert", Table: table, Code: store.CodeTransport, Err: errors.New("connection reset")}
	}
	return s.Client.Insert(ctx, table, record)
}

func (s *flakyStore) List(ctx context.Context, table string, q store.Query) ([]byte, error) {
	if s.failing.Load() {
		return nil, &store.RemoteError{Op: "list", Table: table, Code: store.CodeTransport, Err: errors.New("connection refused")}
	}
	return s.Client.List(ctx, table, q)
}

type testEnv struct {
	t       *testing.T
	srv     *httptest.Server
	client  *http.Client
	db      *sql.DB
	store   *flakyStore
	queries *query.Client
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWait(t, 5*time.Second)
}

func newTestEnvWait(t *testing.T, renderWait time.Duration) *testEnv {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "handler-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))

	st := &flakyStore{Client: store.NewSQLiteStore(db)}
	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	q := query.New(st, backend, query.Options{})
	t.Cleanup(func() {
		_ = q.Close()
		_ = backend.Close()
	})

	sm := scs.New()
	sm.Store = memstore.New()

	renderer, err := render.New(render.Config{TemplatesFS: web.TemplatesRoot(), SessionManager: sm, Version: "test"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	RegisterRoutes(r, Handlers{
		Home:   NewHomeHandler(q, renderer),
		Events: NewEventsHandler(q, renderer, sm, renderWait),
		Venues: NewVenuesHandler(q, renderer, sm, renderWait),
		API:    NewAPIHandler(q),
		Health: NewHealthHandler(db, q, backend, "test"),
	}, RouteOptions{})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{t: t, srv: srv, client: client, db: db, store: st, queries: q}
}

// get fetches path and returns the status and body.
func (e *testEnv) get(path string) (int, string) {
	e.t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(e.t, err)
	return resp.StatusCode, readBody(e.t, resp)
}

// post submits a form and returns the redirect target.
func (e *testEnv) post(path string, form url.Values) string {
	e.t.Helper()
	resp, err := e.client.PostForm(e.srv.URL+path, form)
	require.NoError(e.t, err)
	_ = readBody(e.t, resp)
	require.Equal(e.t, http.StatusSeeOther, resp.StatusCode, "POST %s", path)
	return resp.Header.Get("Location")
}

// do sends a JSON request to the API.
func (e *testEnv) do(method, path, body string) (*http.Response, string) {
	e.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(e.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	return resp, readBody(e.t, resp)
}

// seedEvent inserts an event directly into the store.
func (e *testEnv) seedEvent(name string) model.Event {
	e.t.Helper()
	ev, err := store.InsertAs[model.Event](context.Background(), e.store, model.TableEvents,
		model.EventInput{Name: name, Date: "2024-05-01", Description: "seeded"})
	require.NoError(e.t, err)
	return ev
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
