// Package identity derives a participant's node id from its signing key.
//
// The node id is the SHA-256 digest of the account address left-padded
// to 32 bytes, which is also the key under which the participant's
// record is stored in the registry contract.
package identity

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/roach88/seedsindex/internal/ledger"
)

// ErrInvalidPrivateKey is returned for keys that are not 32 hex-encoded bytes
// or are outside the secp256k1 curve order.
var ErrInvalidPrivateKey = errors.New("invalid private key")

// Identity is a loaded signing key and the values derived from it.
type Identity struct {
	key     *ecdsa.PrivateKey
	address common.Address
	nodeID  ledger.Key
}

// FromHex parses a hex private key, with or without a 0x prefix.
func FromHex(s string) (*Identity, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 64 {
		return nil, fmt.Errorf("%w: want 64 hex digits, got %d", ErrInvalidPrivateKey, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return FromKey(key), nil
}

// FromKey wraps an already parsed key.
func FromKey(key *ecdsa.PrivateKey) *Identity {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &Identity{key: key, address: addr, nodeID: NodeID(addr)}
}

// Generate creates a fresh random identity.
func Generate() (*Identity, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return FromKey(key), nil
}

// NodeID hashes the address placed in the low 20 bytes of a 32-byte word.
func NodeID(addr common.Address) ledger.Key {
	var word [32]byte
	copy(word[32-common.AddressLength:], addr.Bytes())
	return ledger.Key(sha256.Sum256(word[:]))
}

func (id *Identity) PrivateKey() *ecdsa.PrivateKey { return id.key }

func (id *Identity) Address() common.Address { return id.address }

func (id *Identity) NodeID() ledger.Key { return id.nodeID }
