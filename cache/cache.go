// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache implements an LRU cache with keys of type uint64. Each entry
// is stamped with a version; a lookup with a different version is a miss.
// Used to keep forward-backward tables of observations computed under a
// given parameter version.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is safe for concurrent use.
type Cache struct {
	capacity int
	lru      *lru.Cache[uint64, entry]
	hits     atomic.Uint64
	misses   atomic.Uint64
}

type entry struct {
	version uint64
	value   interface{}
}

// NewCache creates a cache that holds up to capacity entries. A cache with
// zero capacity stores nothing.
func NewCache(capacity int) *Cache {
	if capacity < 0 {
		capacity = 0
	}
	c := &Cache{capacity: capacity}
	if capacity > 0 {
		l, err := lru.New[uint64, entry](capacity)
		if err != nil {
			panic(err)
		}
		c.lru = l
	}
	return c
}

// Stats returns the number of entries, the capacity, and hit/miss counts.
func (c *Cache) Stats() (size, capacity int, hits, misses uint64) {
	if c.lru != nil {
		size = c.lru.Len()
	}
	return size, c.capacity, c.hits.Load(), c.misses.Load()
}

// Set stores a value. Evicts the least recently used entry when full.
func (c *Cache) Set(key, version uint64, v interface{}) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, entry{version: version, value: v})
}

// Get returns the value for key if it was stored with the same version.
// Stale entries are removed.
func (c *Cache) Get(key, version uint64) (v interface{}, ok bool) {

	if c.lru == nil {
		c.misses.Add(1)
		return nil, false
	}
	e, found := c.lru.Get(key)
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	if e.version != version {
		c.lru.Remove(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Delete removes key. Returns false if key was not present.
func (c *Cache) Delete(key uint64) bool {
	if c.lru == nil {
		return false
	}
	return c.lru.Remove(key)
}

// Clear removes all entries. Stats counters are reset.
func (c *Cache) Clear() {
	if c.lru != nil {
		c.lru.Purge()
	}
	c.hits.Store(0)
	c.misses.Store(0)
}
