// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripTrailingSlash(t *testing.T) {
	h := StripTrailingSlash(okHandler)

	tests := []struct {
		method   string
		target   string
		wantCode int
		wantLoc  string
	}{
		{http.MethodGet, "/", http.StatusOK, ""},
		{http.MethodGet, "/events", http.StatusOK, ""},
		{http.MethodGet, "/events/", http.StatusMovedPermanently, "/events"},
		{http.MethodGet, "/events/?edit=3", http.StatusMovedPermanently, "/events?edit=3"},
		{http.MethodGet, "/venues//", http.StatusMovedPermanently, "/venues"},
		{http.MethodHead, "/venues/", http.StatusMovedPermanently, "/venues"},
		{http.MethodPost, "/events/", http.StatusPermanentRedirect, "/events"},
		{http.MethodPatch, "/api/v1/events/3/", http.StatusPermanentRedirect, "/api/v1/events/3"},
		{http.MethodPost, "/api/v1/events", http.StatusOK, ""},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
		if w.Code != tt.wantCode {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, w.Code, tt.wantCode)
		}
		if loc := w.Header().Get("Location"); loc != tt.wantLoc {
			t.Errorf("%s %s: Location = %q, want %q", tt.method, tt.target, loc, tt.wantLoc)
		}
	}
}
