// Package publisher writes this node's own record to the ledger.
//
// Publish reflects the write in the local cache as soon as the ledger
// acknowledges it. Retract does not: the local entry disappears only when
// the deletion event comes back through the synchronizer.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/seedsindex/internal/index"
	"github.com/roach88/seedsindex/internal/ledger"
	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

// Publisher manages the record stored under the local identifier.
type Publisher struct {
	gateway ledger.Gateway
	cache   *index.Cache
	self    ledger.Key
}

// New creates a publisher for the participant keyed by self.
func New(gw ledger.Gateway, cache *index.Cache, self ledger.Key) *Publisher {
	return &Publisher{gateway: gw, cache: cache, self: self}
}

// ID returns the local identifier.
func (p *Publisher) ID() ledger.Key {
	return p.self
}

// Self returns the locally cached own record.
func (p *Publisher) Self() (record.Record, bool) {
	return p.cache.Get(p.self.Hex())
}

// Publish writes the local record and blocks until the ledger accepts it.
// On success the record is upserted into the cache immediately.
func (p *Publisher) Publish(ctx context.Context, location string, topics ...topic.Tag) (ledger.Receipt, error) {
	r, err := record.New(location, topics...)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("publish: %w", err)
	}
	payload, err := record.Encode(r)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("publish: %w", err)
	}

	id := p.self.Hex()
	slog.Info("publishing own record", "key", id, "location", location, "topics", len(topics))

	receipt, err := p.gateway.SetValue(ctx, p.self, payload)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("publish %s: %w", id, err)
	}

	p.cache.Upsert(id, r)
	slog.Info("own record published", "key", id, "tx", receipt.TxHash, "block", receipt.Block)
	return receipt, nil
}

// Retract deletes the local record from the ledger and blocks until the
// ledger accepts it. The cache is left untouched.
func (p *Publisher) Retract(ctx context.Context) (ledger.Receipt, error) {
	id := p.self.Hex()
	slog.Info("retracting own record", "key", id)

	receipt, err := p.gateway.DeleteValue(ctx, p.self)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("retract %s: %w", id, err)
	}

	slog.Info("own record retracted", "key", id, "tx", receipt.TxHash, "block", receipt.Block)
	return receipt, nil
}
