// Package memledger is an in-process ledger.Gateway for tests and demos.
//
// Writes are acknowledged immediately and broadcast to every open
// subscription in order. Failure injection hooks let tests exercise the
// synchronizer's error paths without a chain.
package memledger

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/seedsindex/internal/ledger"
)

// Ledger is a map-backed registry with an append-only update log.
type Ledger struct {
	mu      sync.Mutex
	entries map[ledger.Key]string
	log     []ledger.Event
	block   uint64
	subs    map[*subscription]struct{}
	closed  bool

	// Failure injection. Guarded by mu.
	keysErr      error
	subscribeErr error
	writeErr     error
	valueErrs    map[ledger.Key]error

	// BeforeValue, when set, runs before every Value read outside the lock.
	// Tests use it to interleave live events with bootstrap fetches.
	BeforeValue func(ledger.Key)
}

var _ ledger.Gateway = (*Ledger)(nil)

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries:   make(map[ledger.Key]string),
		subs:      make(map[*subscription]struct{}),
		valueErrs: make(map[ledger.Key]error),
	}
}

// Seed stores a value without producing an event, as if it had been
// written before anyone subscribed.
func (l *Ledger) Seed(key ledger.Key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if value == "" {
		delete(l.entries, key)
		return
	}
	l.entries[key] = value
}

// Emit broadcasts an event without touching stored entries. Tests use it to
// deliver stale or out-of-order updates.
func (l *Ledger) Emit(key ledger.Key, value string) {
	l.mu.Lock()
	l.block++
	ev := ledger.Event{Key: key, Value: value, Block: l.block}
	l.log = append(l.log, ev)
	subs := slices.Collect(maps.Keys(l.subs))
	l.mu.Unlock()

	for _, s := range subs {
		s.deliver(ev)
	}
}

// Drop ends every open subscription with err.
func (l *Ledger) Drop(err error) {
	l.mu.Lock()
	subs := slices.Collect(maps.Keys(l.subs))
	clear(l.subs)
	l.mu.Unlock()

	for _, s := range subs {
		s.fail(err)
	}
}

// FailKeys makes Keys return err. Pass nil to clear.
func (l *Ledger) FailKeys(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keysErr = err
}

// FailValue makes Value(key) return err. Pass nil to clear.
func (l *Ledger) FailValue(key ledger.Key, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.valueErrs, key)
		return
	}
	l.valueErrs[key] = err
}

// FailSubscribe makes Subscribe return err. Pass nil to clear.
func (l *Ledger) FailSubscribe(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribeErr = err
}

// FailWrites makes SetValue and DeleteValue return err. Pass nil to clear.
func (l *Ledger) FailWrites(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeErr = err
}

// Subscribers returns the number of open subscriptions.
func (l *Ledger) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Closed reports whether Close has been called.
func (l *Ledger) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Keys returns stored keys in byte order.
func (l *Ledger) Keys(ctx context.Context) ([]ledger.Key, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ledger.ErrClosed
	}
	if l.keysErr != nil {
		return nil, l.keysErr
	}
	keys := slices.Collect(maps.Keys(l.entries))
	slices.SortFunc(keys, func(a, b ledger.Key) int { return slices.Compare(a[:], b[:]) })
	return keys, nil
}

// Value reads the entry under key.
func (l *Ledger) Value(ctx context.Context, key ledger.Key) (string, bool, error) {
	if hook := l.BeforeValue; hook != nil {
		hook(key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return "", false, ledger.ErrClosed
	}
	if err := l.valueErrs[key]; err != nil {
		return "", false, err
	}
	v, ok := l.entries[key]
	return v, ok, nil
}

// SetValue stores value and broadcasts the update.
func (l *Ledger) SetValue(ctx context.Context, key ledger.Key, value string) (ledger.Receipt, error) {
	return l.write(key, value)
}

// DeleteValue clears the entry and broadcasts an empty-value update.
func (l *Ledger) DeleteValue(ctx context.Context, key ledger.Key) (ledger.Receipt, error) {
	return l.write(key, "")
}

func (l *Ledger) write(key ledger.Key, value string) (ledger.Receipt, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ledger.Receipt{}, ledger.ErrClosed
	}
	if l.writeErr != nil {
		err := l.writeErr
		l.mu.Unlock()
		return ledger.Receipt{}, err
	}
	if value == "" {
		delete(l.entries, key)
	} else {
		l.entries[key] = value
	}
	l.block++
	ev := ledger.Event{Key: key, Value: value, Block: l.block}
	l.log = append(l.log, ev)
	subs := slices.Collect(maps.Keys(l.subs))
	l.mu.Unlock()

	for _, s := range subs {
		s.deliver(ev)
	}
	return ledger.Receipt{TxHash: fmt.Sprintf("0x%064x", ev.Block), Block: ev.Block}, nil
}

// Subscribe opens a stream. With r.From set, logged events from that block
// on are replayed first. r.To is not supported and must be nil.
func (l *Ledger) Subscribe(ctx context.Context, r ledger.BlockRange) (ledger.Subscription, error) {
	if r.To != nil {
		return nil, fmt.Errorf("memledger: bounded subscriptions are not supported")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ledger.ErrClosed
	}
	if l.subscribeErr != nil {
		return nil, l.subscribeErr
	}

	s := newSubscription(l)
	if r.From != nil {
		for _, ev := range l.log {
			if ev.Block >= *r.From {
				s.backlog = append(s.backlog, ev)
			}
		}
	}
	l.subs[s] = struct{}{}
	go s.pump()
	return s, nil
}

// Close ends all subscriptions without error and rejects further calls.
func (l *Ledger) Close() error {
	l.mu.Lock()
	l.closed = true
	subs := slices.Collect(maps.Keys(l.subs))
	clear(l.subs)
	l.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	return nil
}

func (l *Ledger) remove(s *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, s)
}
