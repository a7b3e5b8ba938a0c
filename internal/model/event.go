// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the typed records stored in the remote backend.
package model

import (
	"time"
)

// Table names in the remote store.
const (
	TableEvents   = "events"
	TableVenues   = "venues"
	TableComments = "comments"
)

// Event is a row of the events table.
// Comments is only populated when the read requested the comments(*) join.
type Event struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Date        Date      `json:"date"`
	Description string    `json:"description"`
	VenueID     *int64    `json:"venue_id"`
	IsPinned    bool      `json:"is_pinned"`
	ImageURL    *string   `json:"image_url"`
	PDFURL      *string   `json:"pdf_url"`
	Comments    []Comment `json:"comments,omitempty"`
}

// EventInput is the insert payload for an event.
// Identifier and creation timestamp are assigned by the store.
type EventInput struct {
	Name        string  `json:"name"`
	Date        Date    `json:"date"`
	Description string  `json:"description"`
	VenueID     *int64  `json:"venue_id,omitempty"`
	IsPinned    bool    `json:"is_pinned"`
	ImageURL    *string `json:"image_url,omitempty"`
	PDFURL      *string `json:"pdf_url,omitempty"`
}

// EventPatch is a partial update; nil fields are left untouched.
type EventPatch struct {
	Name        *string `json:"name,omitempty"`
	Date        *Date   `json:"date,omitempty"`
	Description *string `json:"description,omitempty"`
	VenueID     *int64  `json:"venue_id,omitempty"`
	IsPinned    *bool   `json:"is_pinned,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	PDFURL      *string `json:"pdf_url,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Name == nil && p.Date == nil && p.Description == nil && p.VenueID == nil &&
		p.IsPinned == nil && p.ImageURL == nil && p.PDFURL == nil
}

// Input returns the insert payload carrying the event's mutable fields.
func (e Event) Input() EventInput {
	return EventInput{
		Name:        e.Name,
		Date:        e.Date,
		Description: e.Description,
		VenueID:     e.VenueID,
		IsPinned:    e.IsPinned,
		ImageURL:    e.ImageURL,
		PDFURL:      e.PDFURL,
	}
}

// CommentCount returns the number of joined comments.
func (e Event) CommentCount() int {
	return len(e.Comments)
}
