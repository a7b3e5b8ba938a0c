// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/query"
	"github.com/olegiv/eventdesk/internal/render"
	"github.com/olegiv/eventdesk/internal/session"
)

// Route paths used for redirects.
const (
	RouteEvents = "/events"
	RouteVenues = "/venues"
)

// EventsHandler serves the event table, its add form and edit modal.
type EventsHandler struct {
	queries    *query.Client
	renderer   *render.Renderer
	drafts     session.Drafts
	renderWait time.Duration
}

// NewEventsHandler creates a new EventsHandler. renderWait bounds how long
// a page waits for a loading collection before showing the placeholder.
func NewEventsHandler(q *query.Client, renderer *render.Renderer, sm *scs.SessionManager, renderWait time.Duration) *EventsHandler {
	return &EventsHandler{
		queries:    q,
		renderer:   renderer,
		drafts:     session.NewDrafts(sm),
		renderWait: renderWait,
	}
}

// EventsPage is the data of the events page.
type EventsPage struct {
	Events   CollectionView[model.Event]
	Venues   CollectionView[model.Venue]
	NewDraft EventForm

	// Editing is set while the edit modal is open.
	Editing *EventEdit

	// EditMissing is the id requested for editing that no longer exists.
	EditMissing int64

	// CommentDraft is the last comment that failed to save.
	CommentDraft CommentForm
}

// CommentDraftFor returns the unsaved comment of event id.
func (p *EventsPage) CommentDraftFor(id int64) string {
	if p.CommentDraft.EventID != id {
		return ""
	}
	return p.CommentDraft.Content
}

// EventEdit is the record shown in the edit modal.
type EventEdit struct {
	ID   int64
	Form EventForm
}

// VenueName returns the name of a venue from the venues snapshot.
func (p *EventsPage) VenueName(id *int64) string {
	if id == nil {
		return ""
	}
	for _, v := range p.Venues.Rows {
		if v.ID == *id {
			return v.Name
		}
	}
	return "#" + strconv.FormatInt(*id, 10)
}

// List handles GET /events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := &EventsPage{
		Events: awaitCollection[model.Event](r.Context(), h.queries, query.KeyEvents, h.renderWait),
		Venues: peekCollection[model.Venue](h.queries, query.KeyVenues),
	}
	h.drafts.LoadNew(r.Context(), string(query.KeyEvents), &page.NewDraft)
	h.drafts.LoadNew(r.Context(), string(query.KeyComments), &page.CommentDraft)

	data := render.TemplateData{Title: "Events", Nav: "events", Data: page}
	switch {
	case page.Events.Loading():
		data.RefreshSeconds = loadingRefresh
	case page.Events.Ready():
		// Pinned events first, otherwise in store order.
		slices.SortStableFunc(page.Events.Rows, func(a, b model.Event) int {
			return -cmp.Compare(boolRank(a.IsPinned), boolRank(b.IsPinned))
		})
		h.openEditor(r, page)
	}

	renderPage(w, r, h.renderer, "events", data)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// openEditor fills the edit modal for ?edit={id}. An unsaved draft for the
// same record wins over the stored values.
func (h *EventsHandler) openEditor(r *http.Request, page *EventsPage) {
	raw := r.URL.Query().Get("edit")
	if raw == "" {
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return
	}

	idx := slices.IndexFunc(page.Events.Rows, func(e model.Event) bool { return e.ID == id })
	if idx < 0 {
		page.EditMissing = id
		return
	}

	edit := &EventEdit{ID: id}
	if !h.drafts.LoadEdit(r.Context(), string(query.KeyEvents), id, &edit.Form) {
		edit.Form = eventFormFrom(page.Events.Rows[idx])
	}
	page.Editing = edit
}

// Create handles POST /events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteEvents) {
		return
	}
	form := parseEventForm(r)
	input := form.Input()

	err := model.Validate(input)
	if err == nil {
		_, err = h.queries.Mutate(r.Context(), query.KeyEvents, query.Insert(input).Also(query.KeyVenues))
	}
	if err != nil {
		h.keepNewDraft(r, form)
		flashError(w, r, h.renderer, RouteEvents, failureMessage("Error adding event.", err))
		return
	}

	h.drafts.ClearNew(r.Context(), string(query.KeyEvents))
	flashSuccess(w, r, h.renderer, RouteEvents, "Event added.")
}

// Update handles POST /events/{id}.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		flashError(w, r, h.renderer, RouteEvents, "Invalid event ID")
		return
	}
	editURL := fmt.Sprintf("%s?edit=%d", RouteEvents, id)
	if !parseFormOrRedirect(w, r, h.renderer, editURL) {
		return
	}
	form := parseEventForm(r)
	patch := form.Patch()

	err := model.Validate(patch)
	if err == nil {
		_, err = h.queries.Mutate(r.Context(), query.KeyEvents, query.Update(id, patch).Also(query.KeyVenues))
	}
	if err != nil {
		if serr := h.drafts.SaveEdit(r.Context(), string(query.KeyEvents), id, form); serr != nil {
			slog.Error("failed to keep edit draft", "category", "http", "error", serr, "event_id", id)
		}
		flashError(w, r, h.renderer, editURL, failureMessage("Error updating event.", err))
		return
	}

	h.drafts.ClearEdit(r.Context(), string(query.KeyEvents))
	flashSuccess(w, r, h.renderer, RouteEvents, "Event updated.")
}

// DiscardEdit handles POST /events/{id}/discard: the modal is closed and
// its draft dropped.
func (h *EventsHandler) DiscardEdit(w http.ResponseWriter, r *http.Request) {
	if id, ok := idParam(r); ok {
		if editing, has := h.drafts.EditingID(r.Context(), string(query.KeyEvents)); has && editing == id {
			h.drafts.ClearEdit(r.Context(), string(query.KeyEvents))
		}
	}
	http.Redirect(w, r, RouteEvents, http.StatusSeeOther)
}

// Delete handles POST /events/{id}/delete.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		flashError(w, r, h.renderer, RouteEvents, "Invalid event ID")
		return
	}

	if _, err := h.queries.Mutate(r.Context(), query.KeyEvents, query.Delete(id).Also(query.KeyVenues)); err != nil {
		flashError(w, r, h.renderer, RouteEvents, failureMessage("Error deleting event.", err))
		return
	}

	if editing, has := h.drafts.EditingID(r.Context(), string(query.KeyEvents)); has && editing == id {
		h.drafts.ClearEdit(r.Context(), string(query.KeyEvents))
	}
	flashSuccess(w, r, h.renderer, RouteEvents, "Event deleted.")
}

// TogglePin handles POST /events/{id}/pin. The form carries the wanted value.
func (h *EventsHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		flashError(w, r, h.renderer, RouteEvents, "Invalid event ID")
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, RouteEvents) {
		return
	}
	pinned := r.PostFormValue("pinned") == "true"

	patch := model.EventPatch{IsPinned: &pinned}
	if _, err := h.queries.Mutate(r.Context(), query.KeyEvents, query.Update(id, patch).Also(query.KeyVenues)); err != nil {
		flashError(w, r, h.renderer, RouteEvents, failureMessage("Error updating event.", err))
		return
	}

	msg := "Event unpinned."
	if pinned {
		msg = "Event pinned."
	}
	flashSuccess(w, r, h.renderer, RouteEvents, msg)
}

// Retry handles POST /events/retry after a failed load.
func (h *EventsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if h.queries.Retry(query.KeyEvents) {
		slog.Info("retrying collection", "category", "query", "key", query.KeyEvents)
	}
	http.Redirect(w, r, RouteEvents, http.StatusSeeOther)
}

// AddComment handles POST /events/{id}/comments.
func (h *EventsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		flashError(w, r, h.renderer, RouteEvents, "Invalid event ID")
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, RouteEvents) {
		return
	}
	form := CommentForm{
		EventID: id,
		Content: strings.TrimSpace(r.PostFormValue("content")),
	}
	input := form.Input()

	err := model.Validate(input)
	if err == nil {
		// Event snapshots embed their comments.
		_, err = h.queries.Mutate(r.Context(), query.KeyComments, query.Insert(input).Also(query.KeyEvents))
	}
	if err != nil {
		if serr := h.drafts.SaveNew(r.Context(), string(query.KeyComments), form); serr != nil {
			slog.Error("failed to keep draft", "category", "http", "error", serr)
		}
		flashError(w, r, h.renderer, RouteEvents, failureMessage("Error adding comment.", err))
		return
	}

	h.drafts.ClearNew(r.Context(), string(query.KeyComments))
	flashSuccess(w, r, h.renderer, RouteEvents, "Comment added.")
}

func (h *EventsHandler) keepNewDraft(r *http.Request, form EventForm) {
	if err := h.drafts.SaveNew(r.Context(), string(query.KeyEvents), form); err != nil {
		slog.Error("failed to keep draft", "category", "http", "error", err)
	}
}
