// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventdesk/internal/middleware"
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/store"
)

func decodeAPIError(t *testing.T, body string) middleware.APIError {
	t.Helper()
	var apiErr middleware.APIError
	require.NoError(t, json.Unmarshal([]byte(body), &apiErr), body)
	return apiErr
}

func TestAPI_EventLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(http.MethodPost, "/api/v1/events", `{"name":"API launch","date":"2024-09-01","description":"from the api"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var created model.Event
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "API launch", created.Name)
	assert.Equal(t, model.Date("2024-09-01"), created.Date)

	resp, body = env.do(http.MethodGet, "/api/v1/events", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Snapshot-Version"))
	var rows []model.Event
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, created.ID, rows[0].ID)

	resp, body = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/events/%d", created.ID), `{"is_pinned":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var updated model.Event
	require.NoError(t, json.Unmarshal([]byte(body), &updated))
	assert.True(t, updated.IsPinned)
	assert.Equal(t, "API launch", updated.Name)

	// The cached snapshot reflects the write.
	_, body = env.do(http.MethodGet, "/api/v1/events", "")
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsPinned)

	resp, _ = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/events/%d", created.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = env.do(http.MethodGet, "/api/v1/events", "")
	assert.JSONEq(t, `[]`, body)
}

func TestAPI_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown collection", http.MethodGet, "/api/v1/tickets", "", http.StatusNotFound, "not_found"},
		{"unknown field", http.MethodPost, "/api/v1/events", `{"name":"x","id":5}`, http.StatusBadRequest, "invalid_body"},
		{"malformed body", http.MethodPost, "/api/v1/venues", `{"name":`, http.StatusBadRequest, "invalid_body"},
		{"comments are append only", http.MethodPatch, "/api/v1/comments/1", `{}`, http.StatusMethodNotAllowed, "method_not_allowed"},
		{"invalid id", http.MethodDelete, "/api/v1/events/abc", "", http.StatusBadRequest, "invalid_id"},
		{"missing row", http.MethodDelete, "/api/v1/events/999", "", http.StatusNotFound, "store_error"},
		{"missing parent", http.MethodPost, "/api/v1/comments", `{"content":"hi","event_id":999}`, http.StatusConflict, "store_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, body)
			assert.Equal(t, tt.wantCode, decodeAPIError(t, body).Error.Code)
		})
	}
}

func TestAPI_StoreErrorDetails(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(http.MethodPost, "/api/v1/comments", `{"content":"hi","event_id":999}`)
	apiErr := decodeAPIError(t, body)
	assert.Equal(t, store.CodeForeignKey, apiErr.Error.Details["store_code"])
	assert.Contains(t, apiErr.Error.Message, "foreign key")
}

func TestAPI_ListFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failing.Store(true)

	resp, body := env.do(http.MethodGet, "/api/v1/venues", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	apiErr := decodeAPIError(t, body)
	assert.Equal(t, store.CodeTransport, apiErr.Error.Details["store_code"])
}

func TestAPI_CommentsInvalidateEvents(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent("Meetup")

	_, body := env.do(http.MethodGet, "/api/v1/events", "")
	var rows []model.Event
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Comments)

	resp, body := env.do(http.MethodPost, "/api/v1/comments", fmt.Sprintf(`{"content":"see you","event_id":%d}`, ev.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	_, body = env.do(http.MethodGet, "/api/v1/events", "")
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows[0].Comments, 1)
	assert.Equal(t, "see you", rows[0].Comments[0].Content)
}

func TestAPI_VenueDeleteRefreshesEvents(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(http.MethodPost, "/api/v1/venues", `{"name":"Hall"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var venue model.Venue
	require.NoError(t, json.Unmarshal([]byte(body), &venue))

	resp, body = env.do(http.MethodPost, "/api/v1/events", fmt.Sprintf(`{"name":"Gig","date":"2024-09-01","venue_id":%d}`, venue.ID))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	_, body = env.do(http.MethodGet, "/api/v1/events", "")
	var rows []model.Event
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].VenueID)
	assert.Equal(t, venue.ID, *rows[0].VenueID)

	resp, _ = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/venues/%d", venue.ID), "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = env.do(http.MethodGet, "/api/v1/events", "")
	rows = nil
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].VenueID)
}

func TestRemoteStatus(t *testing.T) {
	tests := []struct {
		err  *store.RemoteError
		want int
	}{
		{&store.RemoteError{Code: store.CodeNoRows, Status: http.StatusNotAcceptable}, http.StatusNotFound},
		{&store.RemoteError{Code: store.CodeUndefinedColumn, Status: http.StatusBadRequest}, http.StatusBadRequest},
		{&store.RemoteError{Code: store.CodeForeignKey}, http.StatusConflict},
		{&store.RemoteError{Code: store.CodeNotConfigured}, http.StatusBadGateway},
		{&store.RemoteError{Code: store.CodeTransport, Err: errors.New("dial")}, http.StatusBadGateway},
		{&store.RemoteError{Code: store.CodeUnknownColumn}, http.StatusBadRequest},
		{&store.RemoteError{Code: "XX000"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, remoteStatus(tt.err), tt.err.Code)
	}
}
