// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/eventdesk/internal/query"
	"github.com/olegiv/eventdesk/internal/render"
)

// HomeHandler serves the landing page.
type HomeHandler struct {
	queries  *query.Client
	renderer *render.Renderer
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(q *query.Client, renderer *render.Renderer) *HomeHandler {
	return &HomeHandler{queries: q, renderer: renderer}
}

// HomePage lists the cached collections and their sync state.
type HomePage struct {
	Collections []query.KeyStats
}

// Home handles GET /.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, "home", render.TemplateData{
		Title: "Home",
		Nav:   "home",
		Data:  &HomePage{Collections: h.queries.Stats()},
	})
}
