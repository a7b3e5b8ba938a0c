// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/query"
)

// maxAPIBody bounds request bodies of the JSON API.
const maxAPIBody = 1 << 20

// apiCollection binds a URL segment to a cached collection and its payload types.
type apiCollection struct {
	key      query.Key
	newInput func() any
	newPatch func() any // nil when rows cannot be patched
	also     []query.Key
}

var apiCollections = map[string]apiCollection{
	"events": {
		key:      query.KeyEvents,
		newInput: func() any { return &model.EventInput{} },
		newPatch: func() any { return &model.EventPatch{} },
		also:     []query.Key{query.KeyVenues},
	},
	// Deleting a venue clears events.venue_id.
	"venues": {
		key:      query.KeyVenues,
		newInput: func() any { return &model.VenueInput{} },
		newPatch: func() any { return &model.VenuePatch{} },
		also:     []query.Key{query.KeyEvents},
	},
	"comments": {
		key:      query.KeyComments,
		newInput: func() any { return &model.CommentInput{} },
		also:     []query.Key{query.KeyEvents},
	},
}

// APIHandler serves the JSON API. Reads come from the query cache and
// writes go through it, so API clients and pages see the same snapshots.
type APIHandler struct {
	queries *query.Client
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(q *query.Client) *APIHandler {
	return &APIHandler{queries: q}
}

// collection resolves {collection} or writes a 404.
func (h *APIHandler) collection(w http.ResponseWriter, r *http.Request) (apiCollection, bool) {
	name := chi.URLParam(r, "collection")
	col, ok := apiCollections[name]
	if !ok {
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", fmt.Sprintf("unknown collection %q", name), nil)
	}
	return col, ok
}

// List handles GET /api/v1/{collection}.
func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}

	st := h.queries.Await(r.Context(), col.key)
	switch st.Status {
	case query.StatusSuccess:
		w.Header().Set("X-Snapshot-Version", fmt.Sprint(st.Version))
		writeRawJSON(w, http.StatusOK, st.Data)
	case query.StatusError:
		writeStoreError(w, st.Err)
	default:
		middleware.WriteAPIError(w, http.StatusServiceUnavailable, "loading", "collection is still loading", nil)
	}
}

// Create handles POST /api/v1/{collection}.
func (h *APIHandler) Create(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	input := col.newInput()
	if !decodeBody(w, r, input) {
		return
	}

	h.mutate(w, r, col, query.Insert(input), input, http.StatusCreated)
}

// Update handles PATCH /api/v1/{collection}/{id}.
func (h *APIHandler) Update(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	if col.newPatch == nil {
		middleware.WriteAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "rows of this collection cannot be changed", nil)
		return
	}
	id, ok := idParam(r)
	if !ok {
		middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_id", "invalid id", nil)
		return
	}
	patch := col.newPatch()
	if !decodeBody(w, r, patch) {
		return
	}

	h.mutate(w, r, col, query.Update(id, patch), patch, http.StatusOK)
}

// Delete handles DELETE /api/v1/{collection}/{id}.
func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r)
	if !ok {
		middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_id", "invalid id", nil)
		return
	}

	h.mutate(w, r, col, query.Delete(id), nil, http.StatusNoContent)
}

func (h *APIHandler) mutate(w http.ResponseWriter, r *http.Request, col apiCollection, op query.Operation, payload any, status int) {
	if payload != nil {
		if err := model.Validate(payload); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", verr.Fields)
				return
			}
			middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
			return
		}
	}

	row, err := h.queries.Mutate(r.Context(), col.key, op.Also(col.also...))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if status == http.StatusNoContent || len(row) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeRawJSON(w, status, row)
}

// decodeBody decodes a JSON object into dst, rejecting unknown fields so
// server-assigned columns cannot be written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAPIBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body: "+err.Error(), nil)
		return false
	}
	return true
}
