// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexedwards/scs/v2"
)

// Drafts keeps unsaved form input per collection: one new-record draft and
// at most one edit draft. Saving an edit draft for another record replaces
// the previous one.
type Drafts struct {
	sm *scs.SessionManager
}

// NewDrafts creates a Drafts view over sm.
func NewDrafts(sm *scs.SessionManager) Drafts {
	return Drafts{sm: sm}
}

type editDraft struct {
	ID     int64           `json:"id"`
	Values json.RawMessage `json:"values"`
}

func newKey(collection string) string  { return "draft:" + collection + ":new" }
func editKey(collection string) string { return "draft:" + collection + ":edit" }

// SaveNew stores the new-record draft of collection.
func (d Drafts) SaveNew(ctx context.Context, collection string, values any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding %s draft: %w", collection, err)
	}
	d.sm.Put(ctx, newKey(collection), string(data))
	return nil
}

// LoadNew decodes the new-record draft into dst and reports whether one existed.
func (d Drafts) LoadNew(ctx context.Context, collection string, dst any) bool {
	raw := d.sm.GetString(ctx, newKey(collection))
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

// ClearNew discards the new-record draft.
func (d Drafts) ClearNew(ctx context.Context, collection string) {
	d.sm.Remove(ctx, newKey(collection))
}

// SaveEdit stores the edit draft of record id, replacing any other.
func (d Drafts) SaveEdit(ctx context.Context, collection string, id int64, values any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding %s draft: %w", collection, err)
	}
	enc, err := json.Marshal(editDraft{ID: id, Values: data})
	if err != nil {
		return fmt.Errorf("encoding %s draft: %w", collection, err)
	}
	d.sm.Put(ctx, editKey(collection), string(enc))
	return nil
}

// EditingID returns the record the edit draft belongs to.
func (d Drafts) EditingID(ctx context.Context, collection string) (int64, bool) {
	ed, ok := d.edit(ctx, collection)
	return ed.ID, ok
}

// LoadEdit decodes the edit draft into dst if it belongs to record id.
func (d Drafts) LoadEdit(ctx context.Context, collection string, id int64, dst any) bool {
	ed, ok := d.edit(ctx, collection)
	if !ok || ed.ID != id {
		return false
	}
	return json.Unmarshal(ed.Values, dst) == nil
}

// ClearEdit discards the edit draft.
func (d Drafts) ClearEdit(ctx context.Context, collection string) {
	d.sm.Remove(ctx, editKey(collection))
}

func (d Drafts) edit(ctx context.Context, collection string) (editDraft, bool) {
	raw := d.sm.GetString(ctx, editKey(collection))
	if raw == "" {
		return editDraft{}, false
	}
	var ed editDraft
	if err := json.Unmarshal([]byte(raw), &ed); err != nil {
		return editDraft{}, false
	}
	return ed, true
}
