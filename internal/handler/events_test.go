// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/query"
	"github.com/olegiv/eventdesk/internal/store"
)

func TestEvents_CreateShowsRowAndFlashOnce(t *testing.T) {
	env := newTestEnv(t)

	loc := env.post("/events", url.Values{
		"name":        {"Launch party"},
		"date":        {"2024-05-01"},
		"description": {"**bring** snacks"},
	})
	assert.Equal(t, RouteEvents, loc)

	code, body := env.get(loc)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Event added.")
	assert.Contains(t, body, "Launch party")
	assert.Contains(t, body, "<strong>bring</strong> snacks")
	assert.Contains(t, body, "May 1, 2024")

	_, body = env.get(loc)
	assert.NotContains(t, body, "Event added.")
	assert.Contains(t, body, "Launch party")
}

func TestEvents_CreateFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)

	env.post("/events", url.Values{
		"name":     {"Orphan"},
		"date":     {"2024-06-01"},
		"venue_id": {"999"},
	})

	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Error adding event.")
	assert.Contains(t, body, `value="Orphan"`)
	assert.Contains(t, body, "No events yet.")

	// The draft outlives the notification.
	_, body = env.get(RouteEvents)
	assert.NotContains(t, body, "Error adding event.")
	assert.Contains(t, body, `value="Orphan"`)

	// A successful add clears it.
	env.post("/events", url.Values{"name": {"Orphan"}, "date": {"2024-06-01"}})
	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "Event added.")
	assert.NotContains(t, body, `value="Orphan"`)
}

func TestEvents_PinnedFirst(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent("Alpha")
	beta := env.seedEvent("Beta")

	env.post(fmt.Sprintf("/events/%d/pin", beta.ID), url.Values{"pinned": {"true"}})

	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Event pinned.")
	assert.Contains(t, body, `class="badge">pinned`)
	assert.Less(t, strings.Index(body, "Beta"), strings.Index(body, "Alpha"))

	env.post(fmt.Sprintf("/events/%d/pin", beta.ID), url.Values{"pinned": {"false"}})
	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "Event unpinned.")
	assert.NotContains(t, body, `class="badge">pinned`)
}

func TestEvents_PinRefreshesVenues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	venue, err := store.InsertAs[model.Venue](ctx, env.store, model.TableVenues, model.VenueInput{Name: "Arena"})
	require.NoError(t, err)
	ev, err := store.InsertAs[model.Event](ctx, env.store, model.TableEvents,
		model.EventInput{Name: "Final", Date: "2024-08-01", VenueID: &venue.ID})
	require.NoError(t, err)

	venueEvents := func() []model.Event {
		st := env.queries.Await(ctx, query.KeyVenues)
		rows, err := query.Decode[model.Venue](st)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Len(t, rows[0].Events, 1)
		return rows[0].Events
	}
	assert.False(t, venueEvents()[0].IsPinned)

	env.post(fmt.Sprintf("/events/%d/pin", ev.ID), url.Values{"pinned": {"true"}})
	assert.True(t, venueEvents()[0].IsPinned)
}

func TestEvents_EditModal(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent("Workshop")

	_, body := env.get(fmt.Sprintf("/events?edit=%d", ev.ID))
	assert.Contains(t, body, "Edit event")
	assert.Contains(t, body, fmt.Sprintf(`action="/events/%d"`, ev.ID))
	assert.Contains(t, body, `value="2024-05-01"`)

	_, body = env.get("/events?edit=999")
	assert.NotContains(t, body, "Edit event")
	assert.Contains(t, body, "Event 999 no longer exists.")

	_, body = env.get("/events?edit=abc")
	assert.NotContains(t, body, "Edit event")
}

func TestEvents_Update(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent("Workshop")
	_, _ = env.get(RouteEvents)

	loc := env.post(fmt.Sprintf("/events/%d", ev.ID), url.Values{
		"name":        {"Workshop II"},
		"date":        {"2024-07-02"},
		"description": {"updated"},
	})
	assert.Equal(t, RouteEvents, loc)

	_, body := env.get(loc)
	assert.Contains(t, body, "Event updated.")
	assert.Contains(t, body, "Workshop II")
	assert.Contains(t, body, "Jul 2, 2024")
}

func TestEvents_UpdateFailureKeepsEditDraft(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent("Workshop")
	editURL := fmt.Sprintf("/events?edit=%d", ev.ID)

	loc := env.post(fmt.Sprintf("/events/%d", ev.ID), url.Values{
		"name":     {"Renamed"},
		"date":     {"2024-05-01"},
		"venue_id": {"999"},
	})
	assert.Equal(t, editURL, loc)

	_, body := env.get(loc)
	assert.Contains(t, body, "Error updating event.")
	assert.Contains(t, body, "Edit event")
	assert.Contains(t, body, `value="Renamed"`)

	// Cancel drops the draft; the modal then shows the stored values.
	assert.Equal(t, RouteEvents, env.post(fmt.Sprintf("/events/%d/discard", ev.ID), nil))
	_, body = env.get(editURL)
	assert.Contains(t, body, `value="Workshop"`)
	assert.NotContains(t, body, `value="Renamed"`)
}

func TestEvents_Delete(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent("Short lived")

	env.post(fmt.Sprintf("/events/%d/delete", ev.ID), nil)
	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Event deleted.")
	assert.Contains(t, body, "No events yet.")

	env.post(fmt.Sprintf("/events/%d/delete", ev.ID), nil)
	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "Error deleting event.")
}

func TestEvents_Comments(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent("Concert")
	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Comments (0)")

	env.post(fmt.Sprintf("/events/%d/comments", ev.ID), url.Values{"content": {"Great <b>show</b>"}})
	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "Comment added.")
	assert.Contains(t, body, "Comments (1)")
	assert.Contains(t, body, "Great show")

	env.post("/events/999/comments", url.Values{"content": {"lost"}})
	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "Error adding comment.")
	assert.Contains(t, body, "foreign key")
}

func TestEvents_CommentFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent("Concert")
	other := env.seedEvent("Lecture")
	env.store.rejecting.Store(true)

	env.post(fmt.Sprintf("/events/%d/comments", ev.ID), url.Values{"content": {"See you there"}})
	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Error adding comment.")
	assert.Contains(t, body, `value="See you there"`)
	assert.Equal(t, 1, strings.Count(body, `value="See you there"`))
	assert.Equal(t, 1, strings.Count(body, "<details open>"))

	// The draft outlives the notification and stays with its event.
	_, body = env.get(RouteEvents)
	assert.NotContains(t, body, "Error adding comment.")
	assert.Contains(t, body, `value="See you there"`)
	draftAt := strings.Index(body, `value="See you there"`)
	assert.Less(t, strings.Index(body, fmt.Sprintf(`action="/events/%d/comments"`, ev.ID)), draftAt)
	assert.Greater(t, strings.Index(body, fmt.Sprintf(`action="/events/%d/comments"`, other.ID)), draftAt)

	env.store.rejecting.Store(false)
	env.post(fmt.Sprintf("/events/%d/comments", ev.ID), url.Values{"content": {"See you there"}})
	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "Comment added.")
	assert.NotContains(t, body, `value="See you there"`)
	assert.NotContains(t, body, "<details open>")
	assert.Contains(t, body, "Comments (1)")
}

func TestEvents_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	env.post("/events/0/delete", nil)
	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Invalid event ID")
}

func TestEvents_LoadingPlaceholder(t *testing.T) {
	env := newTestEnvWait(t, 0)

	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Loading events")
	assert.Contains(t, body, `http-equiv="refresh"`)

	require.Eventually(t, func() bool {
		_, body = env.get(RouteEvents)
		return !strings.Contains(body, "Loading events")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, body, "No events yet.")
	assert.NotContains(t, body, `http-equiv="refresh"`)
}

func TestEvents_FailureAndRetry(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent("Recovered")
	env.store.failing.Store(true)

	_, body := env.get(RouteEvents)
	assert.Contains(t, body, "Error loading events.")
	assert.Contains(t, body, `action="/events/retry"`)

	// Still failing: the error state sticks until a retry.
	env.store.failing.Store(false)
	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "Error loading events.")

	assert.Equal(t, RouteEvents, env.post("/events/retry", nil))
	_, body = env.get(RouteEvents)
	assert.NotContains(t, body, "Error loading events.")
	assert.Contains(t, body, "Recovered")
}

func TestVenues_CreateAndList(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.get(RouteVenues)
	assert.Contains(t, body, "No venues yet.")

	assert.Equal(t, RouteVenues, env.post("/venues", url.Values{
		"name":        {"Town Hall"},
		"location":    {"Main St 1"},
		"description": {"<script>x</script>Big room"},
	}))

	_, body = env.get(RouteVenues)
	assert.Contains(t, body, "Venue added.")
	assert.Contains(t, body, "Town Hall")
	assert.Contains(t, body, "Main St 1")
	assert.Contains(t, body, "Big room")
	assert.NotContains(t, body, "<script>x</script>")
}

func TestVenues_ShowJoinedEvents(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.get(RouteVenues)

	env.post("/venues", url.Values{"name": {"Arena"}})
	_, body := env.get(RouteVenues)
	require.Contains(t, body, "Arena")

	// Adding an event refreshes the venues snapshot too.
	env.post("/events", url.Values{"name": {"Final"}, "date": {"2024-08-01"}, "venue_id": {"1"}})
	_, body = env.get(RouteVenues)
	assert.Contains(t, body, "Final")
	assert.Contains(t, body, "Aug 1, 2024")

	_, body = env.get(RouteEvents)
	assert.Contains(t, body, "<td>Arena</td>")
}

func TestHome_ShowsCollections(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.get(RouteEvents)

	code, body := env.get("/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Sync status")
	assert.Contains(t, body, "<td>events</td>")
	assert.Contains(t, body, "badge-success")
}
