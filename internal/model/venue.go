// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Venue is a row of the venues table.
// Events is only populated when the read requested the events(*) join.
type Venue struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	Events      []Event    `json:"events,omitempty"`
}

// VenueInput is the insert payload for a venue.
type VenueInput struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// VenuePatch is a partial update; nil fields are left untouched.
type VenuePatch struct {
	Name        *string `json:"name,omitempty"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p VenuePatch) IsEmpty() bool {
	return p.Name == nil && p.Location == nil && p.Description == nil
}
