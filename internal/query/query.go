// Package query answers topic lookups against the local index.
// Queries never touch the network.
package query

import (
	"github.com/roach88/seedsindex/internal/index"
	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

// Engine runs queries over a cache snapshot.
type Engine struct {
	cache *index.Cache
}

// New creates a query engine reading from cache.
func New(cache *index.Cache) *Engine {
	return &Engine{cache: cache}
}

// FindByTopic returns records tagged with tag. topic.Any matches every
// record with at least one topic; records with no topics never match.
// Each record appears at most once. The order is unspecified.
func (e *Engine) FindByTopic(tag topic.Tag) []record.Record {
	var out []record.Record
	for _, r := range e.cache.Snapshot() {
		if Matches(r, tag) {
			out = append(out, r)
		}
	}
	return out
}

// ByID returns the record stored under a participant identifier.
func (e *Engine) ByID(id string) (record.Record, bool) {
	return e.cache.Get(id)
}

// Matches reports whether r satisfies a FindByTopic filter.
func Matches(r record.Record, tag topic.Tag) bool {
	if len(r.Topics) == 0 {
		return false
	}
	if tag == topic.Any {
		return true
	}
	return r.HasTopic(tag)
}
