// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Validator is implemented by write payloads.
type Validator interface {
	Validate() error
}

// Validate runs the payload's Validate hook, if it has one.
func Validate(payload any) error {
	if v, ok := payload.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Err returns e when problems were recorded and nil otherwise.
func (e *ValidationError) Err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// Form fields are free-form text; the hooks below accept every value.

func (in EventInput) Validate() error   { return NewValidationError().Err() }
func (p EventPatch) Validate() error    { return NewValidationError().Err() }
func (in CommentInput) Validate() error { return NewValidationError().Err() }
func (in VenueInput) Validate() error   { return NewValidationError().Err() }
func (p VenuePatch) Validate() error    { return NewValidationError().Err() }
