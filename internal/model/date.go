// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date as entered by the user.
// Values are free-form: anything the store accepts is kept verbatim,
// timestamps returned by the store are truncated to their date part.
type Date string

// NewDate formats t as a calendar date.
func NewDate(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// String returns the raw value.
func (d Date) String() string {
	return string(d)
}

// Time parses the date. ok is false for empty or non-date values.
func (d Date) Time() (time.Time, bool) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MarshalJSON encodes the empty date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON accepts null, YYYY-MM-DD and RFC 3339 timestamps.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = normalizeDate(s)
	return nil
}

func normalizeDate(s string) Date {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t)
	}
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		if _, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return Date(s[:len(DateLayout)])
		}
	}
	return Date(s)
}
