package identity

import (
	"crypto/sha256"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedsindex/internal/ledger"
)

// Well-known development key (Hardhat/Anvil account #0).
const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestFromHex_Address(t *testing.T) {
	id, err := FromHex(devKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), id.Address())
}

func TestFromHex_PrefixOptional(t *testing.T) {
	a, err := FromHex(devKey)
	require.NoError(t, err)
	b, err := FromHex("0x" + devKey)
	require.NoError(t, err)
	assert.Equal(t, a.NodeID(), b.NodeID())
}

func TestFromHex_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"short":    "abcd",
		"non-hex":  "zz" + devKey[2:],
		"too long": devKey + "00",
		"zero":     "0000000000000000000000000000000000000000000000000000000000000000",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromHex(in)
			assert.ErrorIs(t, err, ErrInvalidPrivateKey)
		})
	}
}

func TestNodeID_PaddedAddressDigest(t *testing.T) {
	addr := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	var word [32]byte
	copy(word[12:], addr.Bytes())
	want := ledger.Key(sha256.Sum256(word[:]))

	assert.Equal(t, want, NodeID(addr))
}

func TestNodeID_KnownVector(t *testing.T) {
	id, err := FromHex(devKey)
	require.NoError(t, err)
	assert.Equal(t, "0x2802721c8eadcd4b51bef9f2b29b39041c520de59b341e577f51789c4556284b", id.NodeID().Hex())
}

func TestNodeID_Deterministic(t *testing.T) {
	id, err := FromHex(devKey)
	require.NoError(t, err)
	assert.Equal(t, NodeID(id.Address()), id.NodeID())
	assert.Len(t, id.NodeID().Hex(), 66)
}

func TestGenerate_Distinct(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a.NodeID(), b.NodeID())
}
