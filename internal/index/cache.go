// Package index holds the in-memory mirror of the registry: a concurrent
// map from participant identifier to record.
package index

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/seedsindex/internal/record"
)

// Cache maps participant identifiers to records.
//
// Thread-safety: all methods are safe for concurrent use. Reads never take
// a lock that a writer holds, and writes to the same key are serialized by
// the underlying sync.Map. Records are copied on the way in and on the way
// out, so callers can't mutate cached state.
//
// A Cache is owned by one synchronizer instance and lives as long as it.
type Cache struct {
	entries sync.Map // string -> record.Record
	size    atomic.Int64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{}
}

// Get returns the record stored under id.
func (c *Cache) Get(id string) (record.Record, bool) {
	v, ok := c.entries.Load(id)
	if !ok {
		return record.Record{}, false
	}
	return v.(record.Record).Clone(), true
}

// Upsert stores r under id, replacing any existing entry unconditionally.
// The stored record's ID is forced to id.
func (c *Cache) Upsert(id string, r record.Record) {
	r = r.Clone()
	r.ID = id
	if _, loaded := c.entries.Swap(id, r); !loaded {
		c.size.Add(1)
	}
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
// Reports whether an entry was removed.
func (c *Cache) Remove(id string) bool {
	if _, loaded := c.entries.LoadAndDelete(id); loaded {
		c.size.Add(-1)
		return true
	}
	return false
}

// Snapshot returns a copy of every record currently stored.
//
// The iteration does not block writers. A key written concurrently with the
// scan may or may not be included, but each key appears at most once.
// No ordering is guaranteed.
func (c *Cache) Snapshot() []record.Record {
	out := make([]record.Record, 0, c.Len())
	c.entries.Range(func(_, v any) bool {
		out = append(out, v.(record.Record).Clone())
		return true
	})
	return out
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return int(c.size.Load())
}
