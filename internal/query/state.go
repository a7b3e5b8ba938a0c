// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package query

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle position of a cached collection.
//
//	unloaded -> loading -> success | error
//	success  -> loading  (invalidation)
//	error    -> loading  (Retry)
type Status int

// Collection statuses.
const (
	StatusUnloaded Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a point-in-time view of one collection.
// Data holds the raw JSON array of the snapshot and is set only when
// Status is StatusSuccess.
type State struct {
	Key       Key
	Status    Status
	Data      []byte
	Err       error
	UpdatedAt time.Time
	Version   uint64 // number of snapshots applied so far
}

// Loading reports whether the collection has no settled result yet.
func (s State) Loading() bool {
	return s.Status == StatusUnloaded || s.Status == StatusLoading
}

// Listener receives every state transition of a subscribed key.
// It is called synchronously and must not block.
type Listener func(State)

// Decode unmarshals a successful snapshot into a slice of records.
func Decode[T any](s State) ([]T, error) {
	if s.Status != StatusSuccess {
		return nil, fmt.Errorf("decoding %s: collection is %s", s.Key, s.Status)
	}
	var rows []T
	if err := json.Unmarshal(s.Data, &rows); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.Key, err)
	}
	return rows, nil
}
