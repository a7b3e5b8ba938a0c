// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package query keeps a process-wide snapshot of each record collection and
// refreshes it after every successful write issued through Mutate.
//
// Reads never poll. The first read of a key issues exactly one store List;
// concurrent readers share that call, and concurrent readers of a settled
// key share one backend read. A successful mutation invalidates its
// key (and any extra keys it names) before Mutate returns, so the next
// settled read reflects the write.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/olegiv/eventdesk/internal/cache"
	"github.com/olegiv/eventdesk/internal/store"
)

// Errors returned by the client.
var (
	ErrClosed     = errors.New("query client closed")
	ErrUnknownKey = errors.New("unknown collection")
)

// snapshotPrefix namespaces snapshot entries in the backend.
const snapshotPrefix = "query:"

// Hooks observe fetches and mutations. Nil fields are ignored.
type Hooks struct {
	Fetched func(key Key, elapsed time.Duration, err error)
	Mutated func(key Key, op OpKind, err error)
}

// Options configures a Client.
type Options struct {
	// Collections defaults to DefaultCollections().
	Collections []Collection

	// SnapshotTTL is passed to the backend. Zero keeps snapshots until they
	// are invalidated.
	SnapshotTTL time.Duration

	Logger *slog.Logger
	Hooks  Hooks
}

// Client is the query/mutation cache.
type Client struct {
	store   store.Client
	backend cache.Cacher
	cols    map[Key]Collection
	ttl     time.Duration
	logger  *slog.Logger
	hooks   Hooks

	// fetches run on ctx, never on a reader's context.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// flight collapses concurrent snapshot reads of one version.
	flight singleflight.Group

	mu      sync.Mutex
	entries map[Key]*entry
	nextSub uint64
	closed  bool
}

type entry struct {
	status    Status
	err       error
	updatedAt time.Time
	version   uint64

	// gen identifies the latest fetch issued for the key. Results of
	// older fetches are dropped.
	gen  uint64
	done chan struct{} // closed when the key leaves loading

	listeners map[uint64]Listener

	// applyMu serialises snapshot writes to the backend.
	applyMu sync.Mutex

	stats counters
}

// New creates a Client reading through st and storing snapshots in backend.
func New(st store.Client, backend cache.Cacher, opts Options) *Client {
	cols := opts.Collections
	if len(cols) == 0 {
		cols = DefaultCollections()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		store:   st,
		backend: backend,
		cols:    make(map[Key]Collection, len(cols)),
		ttl:     opts.SnapshotTTL,
		logger:  logger,
		hooks:   opts.Hooks,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[Key]*entry, len(cols)),
	}
	for _, col := range cols {
		c.cols[col.Key] = col
		c.entries[col.Key] = &entry{listeners: map[uint64]Listener{}}
	}
	return c
}

// Keys returns the configured collection keys in sorted order.
func (c *Client) Keys() []Key {
	keys := make([]Key, 0, len(c.cols))
	for k := range c.cols {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Read returns the current state of key without blocking on the store.
// An unloaded key, or a settled key whose snapshot vanished from the
// backend, starts a fetch and reports loading.
func (c *Client) Read(key Key) State {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return State{Key: key, Status: StatusError, Err: fmt.Errorf("%w: %s", ErrUnknownKey, key)}
	}

	switch e.status {
	case StatusUnloaded:
		n := c.startFetchLocked(key, e)
		st := stateLocked(key, e, nil)
		c.mu.Unlock()
		n.dispatch()
		return st
	case StatusSuccess:
		version := e.version
		c.mu.Unlock()
		return c.readSnapshot(key, version)
	default:
		st := stateLocked(key, e, nil)
		c.mu.Unlock()
		return st
	}
}

// readSnapshot loads the stored snapshot of a settled key. A missing
// snapshot counts as an invalidation.
func (c *Client) readSnapshot(key Key, version uint64) State {
	data, err := c.getSnapshot(key, version)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("reading snapshot failed", "key", key, "error", err)
	}

	c.mu.Lock()
	e := c.entries[key]
	if err == nil && e.status == StatusSuccess && e.version == version {
		st := stateLocked(key, e, data)
		c.mu.Unlock()
		return st
	}

	var n notice
	if e.status == StatusSuccess && e.version == version {
		c.logger.Debug("snapshot missing, refetching", "key", key)
		n = c.startFetchLocked(key, e)
	}
	st := stateLocked(key, e, nil)
	c.mu.Unlock()
	n.dispatch()

	if st.Status == StatusSuccess {
		// A newer snapshot landed meanwhile.
		return c.readSnapshot(key, st.Version)
	}
	return st
}

// getSnapshot fetches the stored snapshot of key. Concurrent readers of the
// same version share one backend round trip and the returned bytes, which
// must not be modified.
func (c *Client) getSnapshot(key Key, version uint64) ([]byte, error) {
	v, err, shared := c.flight.Do(fmt.Sprintf("%s@%d", key, version), func() (any, error) {
		return c.backend.Get(c.ctx, snapshotPrefix+string(key))
	})
	if shared {
		c.mu.Lock()
		c.entries[key].stats.sharedReads++
		c.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}
	data, _ := v.([]byte)
	return data, nil
}

// Await returns the first settled state of key, or the loading state if
// ctx ends first.
func (c *Client) Await(ctx context.Context, key Key) State {
	for {
		st := c.Read(key)
		if !st.Loading() {
			return st
		}

		c.mu.Lock()
		var done chan struct{}
		if e := c.entries[key]; e.status == StatusLoading {
			done = e.done
		}
		closed := c.closed
		c.mu.Unlock()

		if done == nil {
			if closed {
				return st
			}
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return st
		}
	}
}

// Subscribe registers l for every transition of key and returns a function
// that removes it. The first subscription to an unloaded key starts a fetch.
func (c *Client) Subscribe(key Key, l Listener) (unsubscribe func()) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return func() {}
	}
	c.nextSub++
	id := c.nextSub
	e.listeners[id] = l
	c.mu.Unlock()

	c.Read(key)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(e.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Retry refetches a key in the error state. Unloaded keys are loaded;
// other states are left alone. It reports whether a fetch started.
func (c *Client) Retry(key Key) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.closed || (e.status != StatusError && e.status != StatusUnloaded) {
		c.mu.Unlock()
		return false
	}
	n := c.startFetchLocked(key, e)
	c.mu.Unlock()
	n.dispatch()
	return true
}

// Invalidate marks keys stale and refetches each one that has been read.
// The state moves to loading before Invalidate returns.
func (c *Client) Invalidate(keys ...Key) {
	for _, key := range keys {
		c.invalidate(key)
	}
}

func (c *Client) invalidate(key Key) {
	e, ok := c.entries[key]
	if !ok {
		return
	}

	// Holding applyMu keeps the refetch from storing its snapshot before
	// the stale one is dropped.
	e.applyMu.Lock()
	c.mu.Lock()
	if e.status == StatusUnloaded {
		c.mu.Unlock()
		e.applyMu.Unlock()
		return
	}
	n := c.startFetchLocked(key, e)
	c.mu.Unlock()

	if err := c.backend.Delete(c.ctx, snapshotPrefix+string(key)); err != nil && !errors.Is(err, cache.ErrCacheClosed) {
		c.logger.Warn("dropping snapshot failed", "key", key, "error", err)
	}
	e.applyMu.Unlock()

	n.dispatch()
}

// Close cancels in-flight fetches and waits for them to finish.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// startFetchLocked issues a new fetch generation for key. Callers hold c.mu.
func (c *Client) startFetchLocked(key Key, e *entry) notice {
	if c.closed {
		return notice{}
	}

	e.gen++
	gen := e.gen
	e.stats.fetches++

	var n notice
	if e.status != StatusLoading {
		e.status = StatusLoading
		e.err = nil
		e.done = make(chan struct{})
		n = noticeLocked(key, e, nil)
	}

	c.wg.Add(1)
	go c.fetch(key, gen)
	return n
}

func (c *Client) fetch(key Key, gen uint64) {
	defer c.wg.Done()

	col := c.cols[key]
	start := time.Now()

	// Readers arriving while the key is loading wait for this List rather
	// than issuing their own.
	data, err := c.store.List(c.ctx, col.Table, col.Query)
	elapsed := time.Since(start)

	if c.hooks.Fetched != nil {
		c.hooks.Fetched(key, elapsed, err)
	}
	if err != nil {
		c.logger.Warn("collection fetch failed", "key", key, "error", err, "duration", elapsed)
	} else {
		c.logger.Debug("collection fetched", "key", key, "bytes", len(data), "duration", elapsed)
	}

	c.apply(key, gen, data, err)
}

// apply settles fetch gen of key unless a newer fetch was issued.
func (c *Client) apply(key Key, gen uint64, data []byte, err error) {
	e := c.entries[key]

	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	if c.superseded(e, gen) {
		return
	}

	if err == nil {
		if serr := c.backend.Set(c.ctx, snapshotPrefix+string(key), data, c.ttl); serr != nil {
			err = fmt.Errorf("storing snapshot: %w", serr)
		}
	}

	c.mu.Lock()
	if e.gen != gen {
		e.stats.dropped++
		c.mu.Unlock()
		return
	}
	if err != nil {
		e.status = StatusError
		e.err = err
		e.stats.fetchErrors++
	} else {
		e.status = StatusSuccess
		e.err = nil
		e.version++
	}
	e.updatedAt = time.Now()
	done := e.done
	e.done = nil
	n := noticeLocked(key, e, data)
	c.mu.Unlock()

	// Listeners hear about the transition before waiters wake.
	n.dispatch()
	if done != nil {
		close(done)
	}
}

func (c *Client) superseded(e *entry, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.gen != gen {
		e.stats.dropped++
		return true
	}
	return false
}

func stateLocked(key Key, e *entry, data []byte) State {
	st := State{
		Key:       key,
		Status:    e.status,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Version:   e.version,
	}
	if e.status == StatusSuccess {
		st.Data = data
	}
	return st
}

// notice is a state transition waiting to be delivered outside the lock.
type notice struct {
	state     State
	listeners []Listener
}

func noticeLocked(key Key, e *entry, data []byte) notice {
	if len(e.listeners) == 0 {
		return notice{}
	}
	ids := make([]uint64, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	n := notice{state: stateLocked(key, e, data), listeners: make([]Listener, len(ids))}
	for i, id := range ids {
		n.listeners[i] = e.listeners[id]
	}
	return n
}

func (n notice) dispatch() {
	for _, l := range n.listeners {
		l(n.state)
	}
}
