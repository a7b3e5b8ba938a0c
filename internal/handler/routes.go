// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Route paths.
const (
	RouteRoot      = "/"
	RouteAPIPrefix = "/api/v1"
	RouteHealth    = "/health"

	routeSuffixID    = "/{id}"
	routeSuffixRetry = "/retry"
)

// Handlers groups the handlers mounted by RegisterRoutes.
type Handlers struct {
	Home   *HomeHandler
	Events *EventsHandler
	Venues *VenuesHandler
	API    *APIHandler
	Health *HealthHandler
}

// RouteOptions carries the middleware stacks applied per route group.
type RouteOptions struct {
	// FormMiddleware wraps the HTML form posts.
	FormMiddleware []func(http.Handler) http.Handler
	// APIMiddleware wraps the JSON API.
	APIMiddleware []func(http.Handler) http.Handler
}

// RegisterRoutes mounts every page, form action, API and health endpoint on r.
func RegisterRoutes(r chi.Router, hs Handlers, opts RouteOptions) {
	r.Get(RouteHealth, hs.Health.Health)
	r.Get(RouteHealth+"/live", hs.Health.Liveness)
	r.Get(RouteHealth+"/ready", hs.Health.Readiness)

	r.Get(RouteRoot, hs.Home.Home)
	r.Get(RouteEvents, hs.Events.List)
	r.Get(RouteVenues, hs.Venues.List)

	r.Group(func(r chi.Router) {
		r.Use(opts.FormMiddleware...)

		// HTML forms can't send PATCH or DELETE.
		r.Post(RouteEvents, hs.Events.Create)
		r.Post(RouteEvents+routeSuffixRetry, hs.Events.Retry)
		r.Post(RouteEvents+routeSuffixID, hs.Events.Update)
		r.Post(RouteEvents+routeSuffixID+"/delete", hs.Events.Delete)
		r.Post(RouteEvents+routeSuffixID+"/pin", hs.Events.TogglePin)
		r.Post(RouteEvents+routeSuffixID+"/discard", hs.Events.DiscardEdit)
		r.Post(RouteEvents+routeSuffixID+"/comments", hs.Events.AddComment)

		r.Post(RouteVenues, hs.Venues.Create)
		r.Post(RouteVenues+routeSuffixRetry, hs.Venues.Retry)
	})

	r.Route(RouteAPIPrefix, func(r chi.Router) {
		r.Use(opts.APIMiddleware...)

		r.Get("/{collection}", hs.API.List)
		r.Post("/{collection}", hs.API.Create)
		r.Patch("/{collection}"+routeSuffixID, hs.API.Update)
		r.Delete("/{collection}"+routeSuffixID, hs.API.Delete)
	})
}
