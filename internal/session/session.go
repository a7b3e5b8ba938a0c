// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session that carries flash
// notifications and unsaved form drafts across redirects.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys.
const (
	keyFlash     = "flash"
	keyFlashType = "flash_type"
)

// Flash types rendered by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// New creates a session manager backed by the sessions table of db.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 24 * time.Hour
	sm.Cookie.Name = "eventdesk_session"
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		// Browsers only accept __Host- cookies that are secure and host-only.
		sm.Cookie.Name = "__Host-eventdesk_session"
	}

	return sm
}

// SetFlash stores a one-shot notification.
func SetFlash(ctx context.Context, sm *scs.SessionManager, message, flashType string) {
	sm.Put(ctx, keyFlash, message)
	sm.Put(ctx, keyFlashType, flashType)
}

// PopFlash removes and returns the pending notification, if any.
func PopFlash(ctx context.Context, sm *scs.SessionManager) (message, flashType string) {
	message = sm.PopString(ctx, keyFlash)
	flashType = sm.PopString(ctx, keyFlashType)
	if message != "" && flashType == "" {
		flashType = FlashInfo
	}
	return message, flashType
}
