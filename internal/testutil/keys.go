// Package testutil holds fixtures shared by tests across packages.
package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/roach88/seedsindex/internal/ledger"
)

// Key returns a ledger key whose last eight bytes encode n big-endian.
// Key(0) is the zero key.
func Key(n uint64) ledger.Key {
	var k ledger.Key
	binary.BigEndian.PutUint64(k[ledger.KeySize-8:], n)
	return k
}

// KeySequence hands out Key(1), Key(2), ... so scenarios get stable ids.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type KeySequence struct {
	mu sync.Mutex
	n  uint64
}

// NewKeySequence creates a sequence whose first Next returns Key(1).
func NewKeySequence() *KeySequence {
	return &KeySequence{}
}

// Next advances the sequence and returns the new key.
func (s *KeySequence) Next() ledger.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return Key(s.n)
}

// Current returns the last key handed out, or the zero key before any Next.
func (s *KeySequence) Current() ledger.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Key(s.n)
}

// Reset rewinds the sequence. After Reset, Next returns Key(1).
func (s *KeySequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
