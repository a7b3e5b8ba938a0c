// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/eventdesk/internal/query"
)

// loadingRefresh is how often a loading page reloads itself.
const loadingRefresh = 2

// CollectionView is what a page shows for one collection.
type CollectionView[T any] struct {
	Status  string // loading, error or success
	Rows    []T
	Version uint64
	Updated time.Time
}

// Loading reports whether the placeholder is shown.
func (v CollectionView[T]) Loading() bool { return v.Status == query.StatusLoading.String() }

// Failed reports whether the failure message is shown.
func (v CollectionView[T]) Failed() bool { return v.Status == query.StatusError.String() }

// Ready reports whether rows are available.
func (v CollectionView[T]) Ready() bool { return v.Status == query.StatusSuccess.String() }

// awaitCollection waits up to wait for key to settle and decodes it.
// Loading and error states carry no rows.
func awaitCollection[T any](ctx context.Context, q *query.Client, key query.Key, wait time.Duration) CollectionView[T] {
	var st query.State
	if wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		st = q.Await(waitCtx, key)
		cancel()
	} else {
		st = q.Read(key)
	}
	return collectionView[T](st)
}

// peekCollection returns the current state of key without waiting.
func peekCollection[T any](q *query.Client, key query.Key) CollectionView[T] {
	return collectionView[T](q.Read(key))
}

func collectionView[T any](st query.State) CollectionView[T] {
	view := CollectionView[T]{Version: st.Version, Updated: st.UpdatedAt}
	switch {
	case st.Loading():
		view.Status = query.StatusLoading.String()
	case st.Status == query.StatusError:
		slog.Warn("collection failed to load", "category", "query", "key", st.Key, "error", st.Err)
		view.Status = query.StatusError.String()
	default:
		rows, err := query.Decode[T](st)
		if err != nil {
			slog.Error("collection snapshot is unreadable", "category", "query", "key", st.Key, "error", err)
			view.Status = query.StatusError.String()
			return view
		}
		view.Status = query.StatusSuccess.String()
		view.Rows = rows
	}
	return view
}
