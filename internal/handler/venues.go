// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/query"
	"github.com/olegiv/eventdesk/internal/render"
	"github.com/olegiv/eventdesk/internal/session"
)

// VenuesHandler serves the venue list with each venue's events.
type VenuesHandler struct {
	queries    *query.Client
	renderer   *render.Renderer
	drafts     session.Drafts
	renderWait time.Duration
}

// NewVenuesHandler creates a new VenuesHandler.
func NewVenuesHandler(q *query.Client, renderer *render.Renderer, sm *scs.SessionManager, renderWait time.Duration) *VenuesHandler {
	return &VenuesHandler{
		queries:    q,
		renderer:   renderer,
		drafts:     session.NewDrafts(sm),
		renderWait: renderWait,
	}
}

// VenuesPage is the data of the venues page.
type VenuesPage struct {
	Venues   CollectionView[model.Venue]
	NewDraft VenueForm
}

// List handles GET /venues.
func (h *VenuesHandler) List(w http.ResponseWriter, r *http.Request) {
	page := &VenuesPage{
		Venues: awaitCollection[model.Venue](r.Context(), h.queries, query.KeyVenues, h.renderWait),
	}
	h.drafts.LoadNew(r.Context(), string(query.KeyVenues), &page.NewDraft)

	data := render.TemplateData{Title: "Venues", Nav: "venues", Data: page}
	if page.Venues.Loading() {
		data.RefreshSeconds = loadingRefresh
	}
	renderPage(w, r, h.renderer, "venues", data)
}

// Create handles POST /venues.
func (h *VenuesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteVenues) {
		return
	}
	form := parseVenueForm(r)
	input := form.Input()

	err := model.Validate(input)
	if err == nil {
		_, err = h.queries.Mutate(r.Context(), query.KeyVenues, query.Insert(input))
	}
	if err != nil {
		if serr := h.drafts.SaveNew(r.Context(), string(query.KeyVenues), form); serr != nil {
			slog.Error("failed to keep draft", "category", "http", "error", serr)
		}
		flashError(w, r, h.renderer, RouteVenues, failureMessage("Error adding venue.", err))
		return
	}

	h.drafts.ClearNew(r.Context(), string(query.KeyVenues))
	flashSuccess(w, r, h.renderer, RouteVenues, "Venue added.")
}

// Retry handles POST /venues/retry after a failed load.
func (h *VenuesHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.queries.Retry(query.KeyVenues)
	http.Redirect(w, r, RouteVenues, http.StatusSeeOther)
}
