// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemory(ttl time.Duration, maxSize int) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{DefaultTTL: ttl, MaxSize: maxSize})
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	c := newTestMemory(0, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "events", []byte(`[]`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	val, err := c.Get(ctx, "events")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(val) != `[]` {
		t.Errorf("Get = %q, want %q", val, `[]`)
	}

	if has, _ := c.Has(ctx, "events"); !has {
		t.Error("expected events to exist")
	}

	if err := c.Delete(ctx, "events"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "events"); err != ErrCacheMiss {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_NoExpiryByDefault(t *testing.T) {
	c := newTestMemory(0, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	time.Sleep(10 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); err != nil {
		t.Errorf("entry without ttl should not expire, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := newTestMemory(20*time.Millisecond, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "default", []byte("v"), 0)
	_ = c.Set(ctx, "custom", []byte("v"), time.Hour)

	time.Sleep(40 * time.Millisecond)

	if _, err := c.Get(ctx, "default"); err != ErrCacheMiss {
		t.Errorf("expired entry: got %v, want ErrCacheMiss", err)
	}
	if has, _ := c.Has(ctx, "default"); has {
		t.Error("Has should report expired entry as absent")
	}
	if _, err := c.Get(ctx, "custom"); err != nil {
		t.Errorf("custom ttl entry: %v", err)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	c := newTestMemory(0, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "query:events", []byte("1"), 0)
	_ = c.Set(ctx, "query:venues", []byte("2"), 0)
	_ = c.Set(ctx, "other", []byte("3"), 0)

	if err := c.DeleteByPrefix(ctx, "query:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if has, _ := c.Has(ctx, "other"); !has {
		t.Error("other should survive")
	}

	_ = c.Clear(ctx)
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	if s := c.Stats(); s.Size != 0 {
		t.Errorf("Size after Clear = %d, want 0", s.Size)
	}
}

func TestMemoryCache_MaxSizeEvictsOldest(t *testing.T) {
	c := newTestMemory(0, 2)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	time.Sleep(time.Millisecond)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	time.Sleep(time.Millisecond)
	_ = c.Set(ctx, "c", []byte("3"), 0)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if has, _ := c.Has(ctx, "a"); has {
		t.Error("oldest entry should have been evicted")
	}

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "b", []byte("22"), 0)
	if has, _ := c.Has(ctx, "c"); !has {
		t.Error("overwrite evicted another entry")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := newTestMemory(0, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("abcd"), 0)
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Sets != 1 {
		t.Errorf("stats = %+v, want 2 hits, 1 miss, 1 set", s)
	}
	if s.Items != 1 || s.Size != 4 {
		t.Errorf("items/size = %d/%d, want 1/4", s.Items, s.Size)
	}
	if s.HitRate < 66 || s.HitRate > 67 {
		t.Errorf("HitRate = %f, want ~66.7", s.HitRate)
	}

	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 || s.Sets != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	c := newTestMemory(0, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	in := []byte("original")
	_ = c.Set(ctx, "k", in, 0)
	in[0] = 'X'

	out, _ := c.Get(ctx, "k")
	if string(out) != "original" {
		t.Errorf("stored value mutated through input: %q", out)
	}
	out[0] = 'Y'

	again, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value mutated through output: %q", again)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := newTestMemory(0, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			for range 100 {
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
				_ = c.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, CleanupInterval: time.Millisecond})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("Get after Close = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", nil, 0); err != ErrCacheClosed {
		t.Errorf("Set after Close = %v, want ErrCacheClosed", err)
	}
}
