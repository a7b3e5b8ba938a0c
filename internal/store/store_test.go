// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventdesk/internal/model"
)

// testDB creates a migrated database in a temp dir.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "eventdesk-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func ptr[T any](v T) *T { return &v }

func TestSQLiteInsertEvent(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	ev, err := InsertAs[model.Event](ctx, s, model.TableEvents, model.EventInput{
		Name:        "Launch",
		Date:        "2024-05-01",
		Description: "d",
	})
	require.NoError(t, err)

	assert.NotZero(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())
	assert.Equal(t, "Launch", ev.Name)
	assert.Equal(t, model.Date("2024-05-01"), ev.Date)
	assert.False(t, ev.IsPinned)
	assert.Nil(t, ev.VenueID)
	assert.Nil(t, ev.ImageURL)
}

func TestSQLiteListWithComments(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	a, err := InsertAs[model.Event](ctx, s, model.TableEvents, model.EventInput{Name: "A", Date: "2024-01-01"})
	require.NoError(t, err)
	b, err := InsertAs[model.Event](ctx, s, model.TableEvents, model.EventInput{Name: "B", Date: "2024-02-01"})
	require.NoError(t, err)

	for _, content := range []string{"first", "second"} {
		_, err := s.Insert(ctx, model.TableComments, model.CommentInput{Content: content, EventID: a.ID})
		require.NoError(t, err)
	}

	events, err := ListAs[model.Event](ctx, s, model.TableEvents, Query{}.Embed(model.TableComments))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, a.ID, events[0].ID)
	require.Len(t, events[0].Comments, 2)
	assert.Equal(t, "first", events[0].Comments[0].Content)
	assert.Equal(t, a.ID, events[0].Comments[0].EventID)

	assert.Equal(t, b.ID, events[1].ID)
	assert.Empty(t, events[1].Comments)
}

func TestSQLiteListFiltersAndOrder(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	for _, in := range []model.EventInput{
		{Name: "Alpha", Date: "2024-03-01"},
		{Name: "Beta", Date: "2024-01-01", IsPinned: true},
		{Name: "Gamma", Date: "2024-02-01", IsPinned: true},
	} {
		_, err := s.Insert(ctx, model.TableEvents, in)
		require.NoError(t, err)
	}

	pinned, err := ListAs[model.Event](ctx, s, model.TableEvents,
		Query{}.Eq("is_pinned", true).OrderBy("date", false))
	require.NoError(t, err)
	require.Len(t, pinned, 2)
	assert.Equal(t, "Beta", pinned[0].Name)
	assert.Equal(t, "Gamma", pinned[1].Name)

	like, err := ListAs[model.Event](ctx, s, model.TableEvents, Query{}.Where("name", OpLike, "*amm*"))
	require.NoError(t, err)
	require.Len(t, like, 1)
	assert.Equal(t, "Gamma", like[0].Name)

	limited, err := ListAs[model.Event](ctx, s, model.TableEvents, Query{}.OrderBy("name", true).WithLimit(1))
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Gamma", limited[0].Name)

	noVenue, err := ListAs[model.Event](ctx, s, model.TableEvents, Query{}.Where("venue_id", OpIs, nil))
	require.NoError(t, err)
	assert.Len(t, noVenue, 3)
}

func TestSQLiteListEmpty(t *testing.T) {
	s := NewSQLiteStore(testDB(t))

	data, err := s.List(context.Background(), model.TableEvents, Query{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestSQLiteUpdate(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	ev, err := InsertAs[model.Event](ctx, s, model.TableEvents, model.EventInput{Name: "Launch", Date: "2024-05-01"})
	require.NoError(t, err)

	updated, err := UpdateAs[model.Event](ctx, s, model.TableEvents, ev.ID, model.EventPatch{IsPinned: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsPinned)
	assert.Equal(t, "Launch", updated.Name)
	assert.Equal(t, ev.CreatedAt, updated.CreatedAt)
}

func TestSQLiteVenueTimestamps(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	v, err := InsertAs[model.Venue](ctx, s, model.TableVenues, model.VenueInput{Name: "Hall", Location: "Berlin"})
	require.NoError(t, err)
	require.NotNil(t, v.UpdatedAt)

	v2, err := UpdateAs[model.Venue](ctx, s, model.TableVenues, v.ID, model.VenuePatch{Location: ptr("Hamburg")})
	require.NoError(t, err)
	assert.Equal(t, "Hamburg", v2.Location)
	require.NotNil(t, v2.UpdatedAt)
	assert.False(t, v2.UpdatedAt.Before(*v.UpdatedAt))
}

func TestSQLiteVenueEvents(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	v, err := InsertAs[model.Venue](ctx, s, model.TableVenues, model.VenueInput{Name: "Hall"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, model.TableEvents, model.EventInput{Name: "At hall", VenueID: &v.ID})
	require.NoError(t, err)

	venues, err := ListAs[model.Venue](ctx, s, model.TableVenues, Query{}.Embed(model.TableEvents))
	require.NoError(t, err)
	require.Len(t, venues, 1)
	require.Len(t, venues[0].Events, 1)
	assert.Equal(t, "At hall", venues[0].Events[0].Name)
}

func TestSQLiteMissingRow(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	_, err := s.Update(ctx, model.TableEvents, 5, model.EventPatch{Name: ptr("x")})
	require.Error(t, err)
	assert.True(t, IsNoRows(err), "update of missing row: %v", err)

	ev, err := InsertAs[model.Event](ctx, s, model.TableEvents, model.EventInput{Name: "once"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, model.TableEvents, ev.ID))

	err = s.Delete(ctx, model.TableEvents, ev.ID)
	require.Error(t, err)
	re, ok := AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoRows, re.Code)
	assert.Equal(t, "delete", re.Op)
}

func TestSQLiteDeleteKeepsComments(t *testing.T) {
	db := testDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	ev, err := InsertAs[model.Event](ctx, s, model.TableEvents, model.EventInput{Name: "E"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, model.TableComments, model.CommentInput{Content: "c", EventID: ev.ID})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, model.TableEvents, ev.ID))

	comments, err := ListAs[model.Comment](ctx, s, model.TableComments, Query{}.Eq("event_id", ev.ID))
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestSQLiteErrors(t *testing.T) {
	s := NewSQLiteStore(testDB(t))
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code string
	}{
		{
			name: "unknown relationship",
			call: func() error {
				_, err := s.List(ctx, model.TableEvents, Query{}.Embed("speakers"))
				return err
			},
			code: CodeNoRelationship,
		},
		{
			name: "unknown filter column",
			call: func() error {
				_, err := s.List(ctx, model.TableEvents, Query{}.Eq("nope", 1))
				return err
			},
			code: CodeUndefinedColumn,
		},
		{
			name: "unknown table",
			call: func() error {
				_, err := s.List(ctx, "speakers", Query{})
				return err
			},
			code: CodeUndefinedTable,
		},
		{
			name: "unknown write column",
			call: func() error {
				_, err := s.Insert(ctx, model.TableEvents, map[string]any{"title": "x"})
				return err
			},
			code: CodeUnknownColumn,
		},
		{
			name: "server assigned column",
			call: func() error {
				_, err := s.Insert(ctx, model.TableEvents, map[string]any{"id": 9})
				return err
			},
			code: CodeUnknownColumn,
		},
		{
			name: "comment on missing event",
			call: func() error {
				_, err := s.Insert(ctx, model.TableComments, model.CommentInput{Content: "c", EventID: 42})
				return err
			},
			code: CodeForeignKey,
		},
		{
			name: "comment without event",
			call: func() error {
				_, err := s.Insert(ctx, model.TableComments, map[string]any{"content": "c"})
				return err
			},
			code: CodeNotNull,
		},
		{
			name: "invalid integer filter",
			call: func() error {
				_, err := s.List(ctx, model.TableEvents, Query{}.Eq("id", "abc"))
				return err
			},
			code: CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			re, ok := AsRemoteError(err)
			require.True(t, ok, "want RemoteError, got %T", err)
			assert.Equal(t, tt.code, re.Code)
		})
	}
}
