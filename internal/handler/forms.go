// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/eventdesk/internal/model"
)

// EventForm is the raw input of the add and edit event forms. It is kept
// in the session as a draft, so every field is a plain string.
type EventForm struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Description string `json:"description"`
	VenueID     string `json:"venue_id"`
	IsPinned    bool   `json:"is_pinned"`
	ImageURL    string `json:"image_url"`
	PDFURL      string `json:"pdf_url"`
}

func parseEventForm(r *http.Request) EventForm {
	return EventForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Date:        strings.TrimSpace(r.PostFormValue("date")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		VenueID:     strings.TrimSpace(r.PostFormValue("venue_id")),
		IsPinned:    r.PostFormValue("is_pinned") != "",
		ImageURL:    strings.TrimSpace(r.PostFormValue("image_url")),
		PDFURL:      strings.TrimSpace(r.PostFormValue("pdf_url")),
	}
}

// eventFormFrom prefills the edit form from a stored event.
func eventFormFrom(e model.Event) EventForm {
	f := EventForm{
		Name:        e.Name,
		Date:        e.Date.String(),
		Description: e.Description,
		IsPinned:    e.IsPinned,
	}
	if e.VenueID != nil {
		f.VenueID = strconv.FormatInt(*e.VenueID, 10)
	}
	if e.ImageURL != nil {
		f.ImageURL = *e.ImageURL
	}
	if e.PDFURL != nil {
		f.PDFURL = *e.PDFURL
	}
	return f
}

// Input converts the form to an insert payload. A venue that is not a
// number is left unset.
func (f EventForm) Input() model.EventInput {
	return model.EventInput{
		Name:        f.Name,
		Date:        model.Date(f.Date),
		Description: f.Description,
		VenueID:     parseOptionalID(f.VenueID),
		IsPinned:    f.IsPinned,
		ImageURL:    optionalString(f.ImageURL),
		PDFURL:      optionalString(f.PDFURL),
	}
}

// Patch converts the edit form to a patch. The text fields are always
// sent; venue and links only when filled in.
func (f EventForm) Patch() model.EventPatch {
	date := model.Date(f.Date)
	return model.EventPatch{
		Name:        &f.Name,
		Date:        &date,
		Description: &f.Description,
		VenueID:     parseOptionalID(f.VenueID),
		IsPinned:    &f.IsPinned,
		ImageURL:    optionalString(f.ImageURL),
		PDFURL:      optionalString(f.PDFURL),
	}
}

// VenueForm is the raw input of the add venue form.
type VenueForm struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

func parseVenueForm(r *http.Request) VenueForm {
	return VenueForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Location:    strings.TrimSpace(r.PostFormValue("location")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
}

// Input converts the form to an insert payload.
func (f VenueForm) Input() model.VenueInput {
	return model.VenueInput(f)
}

// CommentForm is the raw input of an event's comment box.
type CommentForm struct {
	EventID int64  `json:"event_id"`
	Content string `json:"content"`
}

// Input converts the form to an insert payload.
func (f CommentForm) Input() model.CommentInput {
	return model.CommentInput{Content: f.Content, EventID: f.EventID}
}

func parseOptionalID(s string) *int64 {
	if s == "" {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
