// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides the remote store client: filtered reads, inserts,
// updates and deletes against the events, venues and comments tables.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Client is the remote store contract. Results are raw JSON: a JSON array
// for List and a single JSON object for Insert and Update.
// Every failure is a *RemoteError. Calls are never retried or batched.
type Client interface {
	List(ctx context.Context, table string, q Query) ([]byte, error)
	Insert(ctx context.Context, table string, record any) ([]byte, error)
	Update(ctx context.Context, table string, id int64, patch any) ([]byte, error)
	Delete(ctx context.Context, table string, id int64) error
}

// ListAs lists rows of table and decodes them into T.
func ListAs[T any](ctx context.Context, c Client, table string, q Query) ([]T, error) {
	data, err := c.List(ctx, table, q)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", table, err)
	}
	return rows, nil
}

// InsertAs inserts record into table and decodes the stored row.
func InsertAs[T any](ctx context.Context, c Client, table string, record any) (T, error) {
	var row T
	data, err := c.Insert(ctx, table, record)
	if err != nil {
		return row, err
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return row, fmt.Errorf("decoding %s: %w", table, err)
	}
	return row, nil
}

// UpdateAs patches row id of table and decodes the stored row.
func UpdateAs[T any](ctx context.Context, c Client, table string, id int64, patch any) (T, error) {
	var row T
	data, err := c.Update(ctx, table, id, patch)
	if err != nil {
		return row, err
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return row, fmt.Errorf("decoding %s: %w", table, err)
	}
	return row, nil
}

// CallObserver is notified after every store call.
type CallObserver func(op, table string, elapsed time.Duration, err error)

// Instrument wraps c so that obs sees every call.
func Instrument(c Client, obs CallObserver) Client {
	if obs == nil {
		return c
	}
	return &instrumented{next: c, obs: obs}
}

type instrumented struct {
	next Client
	obs  CallObserver
}

func (i *instrumented) List(ctx context.Context, table string, q Query) ([]byte, error) {
	start := time.Now()
	data, err := i.next.List(ctx, table, q)
	i.obs("list", table, time.Since(start), err)
	return data, err
}

func (i *instrumented) Insert(ctx context.Context, table string, record any) ([]byte, error) {
	start := time.Now()
	data, err := i.next.Insert(ctx, table, record)
	i.obs("insert", table, time.Since(start), err)
	return data, err
}

func (i *instrumented) Update(ctx context.Context, table string, id int64, patch any) ([]byte, error) {
	start := time.Now()
	data, err := i.next.Update(ctx, table, id, patch)
	i.obs("update", table, time.Since(start), err)
	return data, err
}

func (i *instrumented) Delete(ctx context.Context, table string, id int64) error {
	start := time.Now()
	err := i.next.Delete(ctx, table, id)
	i.obs("delete", table, time.Since(start), err)
	return err
}
