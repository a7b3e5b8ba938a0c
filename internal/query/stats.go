// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package query

import "time"

type counters struct {
	fetches        uint64
	fetchErrors    uint64
	dropped        uint64
	sharedReads    uint64
	mutations      uint64
	mutationErrors uint64
	inFlight       int
}

// KeyStats describes one collection.
type KeyStats struct {
	Key            Key       `json:"key"`
	Status         string    `json:"status"`
	Version        uint64    `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
	Subscribers    int       `json:"subscribers"`
	Fetches        uint64    `json:"fetches"`
	FetchErrors    uint64    `json:"fetch_errors"`
	Dropped        uint64    `json:"dropped_results"` // fetch results superseded by a newer fetch
	SharedReads    uint64    `json:"shared_reads"`    // snapshot reads served by another reader's backend call
	Mutations      uint64    `json:"mutations"`
	MutationErrors uint64    `json:"mutation_errors"`
	InFlight       int       `json:"mutations_in_flight"`
}

// Stats returns per-key counters ordered by key.
func (c *Client) Stats() []KeyStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]KeyStats, 0, len(c.entries))
	for _, key := range c.Keys() {
		e := c.entries[key]
		out = append(out, KeyStats{
			Key:            key,
			Status:         e.status.String(),
			Version:        e.version,
			UpdatedAt:      e.updatedAt,
			Subscribers:    len(e.listeners),
			Fetches:        e.stats.fetches,
			FetchErrors:    e.stats.fetchErrors,
			Dropped:        e.stats.dropped,
			SharedReads:    e.stats.sharedReads,
			Mutations:      e.stats.mutations,
			MutationErrors: e.stats.mutationErrors,
			InFlight:       e.stats.inFlight,
		})
	}
	return out
}
