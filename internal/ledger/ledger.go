// Package ledger defines the gateway the synchronizer and publisher use to
// talk to the registry contract, independent of the chain client behind it.
//
// Implementations:
//   - evm:      Besu/Ethereum JSON-RPC via go-ethereum contract bindings
//   - sqlite:   single-file development ledger with a polled update log
//   - memledger: in-process ledger for tests
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the length of a registry key in bytes.
const KeySize = 32

var (
	// ErrClosed is returned by gateway calls made after Close.
	ErrClosed = errors.New("ledger: gateway closed")

	// ErrRangeComplete is delivered on Subscription.Err when a bounded
	// range has been fully delivered.
	ErrRangeComplete = errors.New("ledger: subscription range complete")
)

// Key is a registry key. Participants are keyed by their identifier.
type Key [KeySize]byte

// Hex renders k as "0x" followed by 64 lowercase hex digits.
func (k Key) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

func (k Key) String() string {
	return k.Hex()
}

// ParseKey parses a hex key with or without the 0x prefix.
func ParseKey(s string) (Key, error) {
	var k Key
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != KeySize*2 {
		return k, fmt.Errorf("ledger: key must be %d hex digits, got %d", KeySize*2, len(raw))
	}
	if _, err := hex.Decode(k[:], []byte(raw)); err != nil {
		return k, fmt.Errorf("ledger: invalid key: %w", err)
	}
	return k, nil
}

// Event reports that the value stored under Key changed.
// An empty Value means the entry was deleted.
type Event struct {
	Key   Key
	Value string
	Block uint64
}

// Deleted reports whether the event signals removal.
func (e Event) Deleted() bool {
	return e.Value == ""
}

// Receipt acknowledges a write transaction.
type Receipt struct {
	TxHash string
	Block  uint64
}

// BlockRange bounds a subscription. A nil From starts at the latest block;
// a nil To keeps the subscription open indefinitely.
type BlockRange struct {
	From *uint64
	To   *uint64
}

// Latest is the open-ended range starting at the current head.
var Latest = BlockRange{}

// Subscription is a live stream of update events.
//
// Events are delivered in ledger order on a single channel. Err delivers at
// most one value: the reason the stream ended (ErrRangeComplete for a
// bounded range that ran to its end). Unsubscribe stops delivery
// and releases resources; it is safe to call more than once. After
// Unsubscribe no error is reported.
type Subscription interface {
	Events() <-chan Event
	Err() <-chan error
	Unsubscribe()
}

// Gateway is the registry contract as seen by this node.
//
// Writes block until the ledger acknowledges the transaction. No timeout is
// added beyond what ctx carries.
type Gateway interface {
	// Keys enumerates every key currently stored.
	Keys(ctx context.Context) ([]Key, error)

	// Value reads one entry. ok is false when nothing is stored under key.
	Value(ctx context.Context, key Key) (value string, ok bool, err error)

	// SetValue stores value under key.
	SetValue(ctx context.Context, key Key, value string) (Receipt, error)

	// DeleteValue clears the entry under key.
	DeleteValue(ctx context.Context, key Key) (Receipt, error)

	// Subscribe opens a stream of update events within r. ctx bounds
	// opening the stream only; it then runs until Unsubscribe.
	Subscribe(ctx context.Context, r BlockRange) (Subscription, error)

	// Close releases the underlying connection.
	Close() error
}
