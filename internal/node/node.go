// Package node is the entry point applications use: it wires identity,
// the ledger gateway, the synchronizer, queries and self-publishing.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/seedsindex/internal/config"
	"github.com/roach88/seedsindex/internal/engine"
	"github.com/roach88/seedsindex/internal/identity"
	"github.com/roach88/seedsindex/internal/ledger"
	"github.com/roach88/seedsindex/internal/ledger/evm"
	"github.com/roach88/seedsindex/internal/ledger/sqlite"
	"github.com/roach88/seedsindex/internal/publisher"
	"github.com/roach88/seedsindex/internal/query"
	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

// ErrReadOnly is returned by operations that need the node's own key
// when none was configured.
var ErrReadOnly = errors.New("node has no identity: configure a private key")

// Node is a running mirror of the registry plus this participant's
// publishing handle.
type Node struct {
	id   *identity.Identity
	sync *engine.Synchronizer
	q    *query.Engine
	pub  *publisher.Publisher
}

// Init loads the identity, dials the configured ledger and starts the
// synchronizer. It returns once the mirror is LIVE.
//
// An invalid private key or an unreachable ledger aborts Init. An empty
// key yields a read-only node.
func Init(ctx context.Context, cfg *config.Config) (*Node, error) {
	var id *identity.Identity
	if cfg.Node.PrivateKey != "" {
		var err error
		id, err = identity.FromHex(cfg.Node.PrivateKey)
		if err != nil {
			return nil, err
		}
		slog.Info("identity loaded", "address", id.Address().Hex(), "node_id", id.NodeID().Hex())
	}

	gw, err := Dial(ctx, cfg.Ledger, id)
	if err != nil {
		return nil, engine.NewLedgerUnavailableError("dial", err)
	}

	return Open(ctx, gw, id, engine.WithBootstrapConcurrency(cfg.Sync.BootstrapConcurrency))
}

// Dial opens the gateway selected by lc.Driver.
func Dial(ctx context.Context, lc config.LedgerConfig, id *identity.Identity) (ledger.Gateway, error) {
	switch lc.Driver {
	case config.DriverEthereum:
		ec := evm.Config{
			Endpoint: lc.Endpoint,
			Contract: lc.Contract,
			GasPrice: lc.GasPrice,
			GasLimit: lc.GasLimit,
		}
		if id != nil {
			ec.PrivateKey = id.PrivateKey()
		}
		return evm.Dial(ctx, ec)

	case config.DriverSQLite:
		interval, err := lc.PollDuration()
		if err != nil {
			return nil, fmt.Errorf("poll interval: %w", err)
		}
		return sqlite.Open(lc.Endpoint, sqlite.WithPollInterval(interval))

	default:
		return nil, fmt.Errorf("unknown ledger driver %q", lc.Driver)
	}
}

// Open starts a node over an already opened gateway. The node takes
// ownership of gw. id may be nil for a read-only node.
func Open(ctx context.Context, gw ledger.Gateway, id *identity.Identity, opts ...engine.Option) (*Node, error) {
	s := engine.New(gw, opts...)
	if err := s.Start(ctx); err != nil {
		return nil, fmt.Errorf("start synchronizer: %w", err)
	}

	n := &Node{
		id:   id,
		sync: s,
		q:    query.New(s.Cache()),
	}
	if id != nil {
		n.pub = publisher.New(gw, s.Cache(), id.NodeID())
	}
	return n, nil
}

// Shutdown stops synchronization and closes the ledger connection.
// The node must not be used afterwards.
func (n *Node) Shutdown() error {
	return n.sync.Shutdown()
}

// Err delivers a fatal synchronization error. The owner should shut the
// node down and create a new one.
func (n *Node) Err() <-chan error {
	return n.sync.Err()
}

// Synchronizer exposes lifecycle state and counters.
func (n *Node) Synchronizer() *engine.Synchronizer {
	return n.sync
}

// Identity returns the loaded identity, or nil for a read-only node.
func (n *Node) Identity() *identity.Identity {
	return n.id
}

// MyNodeID returns this node's identifier as 0x-prefixed hex.
func (n *Node) MyNodeID() (string, error) {
	if n.id == nil {
		return "", ErrReadOnly
	}
	return n.id.NodeID().Hex(), nil
}

// RecordByNodeID looks up a participant. id may omit the 0x prefix and
// may use upper case hex. Malformed ids are reported as not found.
func (n *Node) RecordByNodeID(id string) (record.Record, bool) {
	key, err := ledger.ParseKey(id)
	if err != nil {
		return record.Record{}, false
	}
	return n.q.ByID(key.Hex())
}

// FindByTopic returns participants tagged with tag; topic.Any returns
// every participant that has at least one tag.
func (n *Node) FindByTopic(tag topic.Tag) []record.Record {
	return n.q.FindByTopic(tag)
}

// MyRecord returns the locally cached own record.
func (n *Node) MyRecord() (record.Record, bool) {
	if n.pub == nil {
		return record.Record{}, false
	}
	return n.pub.Self()
}

// SetMyRecord publishes this node's record and blocks until it is mined.
func (n *Node) SetMyRecord(ctx context.Context, location string, topics ...topic.Tag) (ledger.Receipt, error) {
	if n.pub == nil {
		return ledger.Receipt{}, ErrReadOnly
	}
	return n.pub.Publish(ctx, location, topics...)
}

// DeleteMyRecord retracts this node's record and blocks until it is mined.
// The local copy stays visible until the deletion event is applied.
func (n *Node) DeleteMyRecord(ctx context.Context) (ledger.Receipt, error) {
	if n.pub == nil {
		return ledger.Receipt{}, ErrReadOnly
	}
	return n.pub.Retract(ctx)
}
