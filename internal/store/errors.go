// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
)

// Error codes shared by both backends. They follow PostgREST and
// PostgreSQL so the UI can treat either backend the same way.
const (
	CodeNoRows          = "PGRST116" // update/delete matched no row
	CodeNoRelationship  = "PGRST200" // join names an unknown relationship
	CodeUnknownColumn   = "PGRST204" // write names an unknown column
	CodeUndefinedColumn = "42703"    // filter/order names an unknown column
	CodeUndefinedTable  = "42P01"
	CodeForeignKey      = "23503"
	CodeNotConfigured   = "EVD001" // endpoint or key missing
	CodeTransport       = "EVD002" // store unreachable
)

// RemoteError is returned by every failed store call. Message is the
// store-provided text and is opaque to the client.
type RemoteError struct {
	Op      string // list, insert, update, delete
	Table   string
	Status  int // HTTP status for the REST backend, 0 otherwise
	Code    string
	Message string
	Details string
	Hint    string
	Err     error // transport-level cause, if any
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Table != "" {
		return fmt.Sprintf("remote store: %s %s: %s", e.Op, e.Table, msg)
	}
	return fmt.Sprintf("remote store: %s: %s", e.Op, msg)
}

// Unwrap returns the transport cause.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// AsRemoteError extracts a *RemoteError from err.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsNoRows reports whether err is a RemoteError for a missing row.
func IsNoRows(err error) bool {
	re, ok := AsRemoteError(err)
	return ok && re.Code == CodeNoRows
}

func remoteErr(op, table, code, msg string) *RemoteError {
	return &RemoteError{Op: op, Table: table, Code: code, Message: msg}
}
