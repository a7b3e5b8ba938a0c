// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package query

import (
	"github.com/olegiv/eventdesk/internal/model"
	"github.com/olegiv/eventdesk/internal/store"
)

// Key names a cached collection.
type Key string

// Collection keys.
const (
	KeyEvents   Key = "events"
	KeyVenues   Key = "venues"
	KeyComments Key = "comments"
)

// Collection binds a key to the store read that fills it.
type Collection struct {
	Key   Key
	Table string
	Query store.Query
}

// DefaultCollections returns the collections the application reads.
// Events embed their comments and venues embed their events, so writes to
// a child collection also invalidate the parent (see Operation.Also).
func DefaultCollections() []Collection {
	return []Collection{
		{
			Key:   KeyEvents,
			Table: model.TableEvents,
			Query: store.Query{}.Embed(model.TableComments).OrderBy("id", false),
		},
		{
			Key:   KeyVenues,
			Table: model.TableVenues,
			Query: store.Query{}.Embed(model.TableEvents).OrderBy("id", false),
		},
		{
			Key:   KeyComments,
			Table: model.TableComments,
			Query: store.Query{}.OrderBy("id", false),
		},
	}
}
