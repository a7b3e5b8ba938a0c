// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package query

import (
	"context"
	"encoding/json"
	"fmt"
)

// OpKind is the store call issued by a mutation.
type OpKind string

// Mutation kinds.
const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation describes one write. Build it with Insert, Update or Delete.
type Operation struct {
	Kind    OpKind
	ID      int64
	Payload any
	also    []Key
}

// Insert creates a row from record.
func Insert(record any) Operation {
	return Operation{Kind: OpInsert, Payload: record}
}

// Update patches row id.
func Update(id int64, patch any) Operation {
	return Operation{Kind: OpUpdate, ID: id, Payload: patch}
}

// Delete removes row id.
func Delete(id int64) Operation {
	return Operation{Kind: OpDelete, ID: id}
}

// Also names further keys whose snapshots embed the written collection.
func (op Operation) Also(keys ...Key) Operation {
	op.also = append(append([]Key(nil), op.also...), keys...)
	return op
}

// Mutate issues op against the table of key. On success key and every
// key named by op.Also are invalidated before Mutate returns and the stored
// row is returned (nil for deletes). On failure the cache is untouched and
// the error is returned to the caller only.
func (c *Client) Mutate(ctx context.Context, key Key, op Operation) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	col, ok := c.cols[key]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	e := c.entries[key]
	e.stats.mutations++
	e.stats.inFlight++
	c.mu.Unlock()

	var (
		data []byte
		err  error
	)
	switch op.Kind {
	case OpInsert:
		data, err = c.store.Insert(ctx, col.Table, op.Payload)
	case OpUpdate:
		data, err = c.store.Update(ctx, col.Table, op.ID, op.Payload)
	case OpDelete:
		err = c.store.Delete(ctx, col.Table, op.ID)
	default:
		err = fmt.Errorf("unsupported mutation %q", op.Kind)
	}

	c.mu.Lock()
	e.stats.inFlight--
	if err != nil {
		e.stats.mutationErrors++
	}
	c.mu.Unlock()

	if c.hooks.Mutated != nil {
		c.hooks.Mutated(key, op.Kind, err)
	}
	if err != nil {
		c.logger.Warn("mutation failed", "key", key, "op", op.Kind, "id", op.ID, "error", err)
		return nil, err
	}

	c.logger.Info("mutation applied", "key", key, "op", op.Kind, "id", op.ID)
	c.Invalidate(append([]Key{key}, op.also...)...)
	return data, nil
}

// MutateAs runs Mutate and decodes the returned row.
func MutateAs[T any](ctx context.Context, c *Client, key Key, op Operation) (T, error) {
	var row T
	data, err := c.Mutate(ctx, key, op)
	if err != nil {
		return row, err
	}
	if len(data) == 0 {
		return row, nil
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return row, fmt.Errorf("decoding %s: %w", key, err)
	}
	return row, nil
}
