package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/roach88/seedsindex/internal/ledger"
)

// storageABI describes the deployed registry contract.
const storageABI = `[
  {"type":"function","name":"getKeys","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bytes32[]"}]},
  {"type":"function","name":"getValue","stateMutability":"view",
   "inputs":[{"name":"key","type":"bytes32"}],
   "outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"setValue","stateMutability":"nonpayable",
   "inputs":[{"name":"key","type":"bytes32"},{"name":"value","type":"string"}],"outputs":[]},
  {"type":"function","name":"deleteValue","stateMutability":"nonpayable",
   "inputs":[{"name":"key","type":"bytes32"}],"outputs":[]},
  {"type":"event","name":"IndexUpdate","anonymous":false,
   "inputs":[{"name":"key","type":"bytes32","indexed":false},{"name":"value","type":"string","indexed":false}]}
]`

const (
	methodGetKeys     = "getKeys"
	methodGetValue    = "getValue"
	methodSetValue    = "setValue"
	methodDeleteValue = "deleteValue"
	eventIndexUpdate  = "IndexUpdate"
)

// DefaultContract is the registry deployment on the shared network.
const DefaultContract = "0x7136fdeb20b12ec08ef3f9e0bdd7186e7a6d774f"

// indexUpdate mirrors the IndexUpdate event arguments.
type indexUpdate struct {
	Key   [32]byte
	Value string
}

func parseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(storageABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse storage ABI: %w", err)
	}
	return parsed, nil
}

// decodeLog turns a raw IndexUpdate log into a ledger event.
func decodeLog(parsed abi.ABI, lg types.Log) (ledger.Event, error) {
	ev, ok := parsed.Events[eventIndexUpdate]
	if !ok {
		return ledger.Event{}, fmt.Errorf("ABI has no %s event", eventIndexUpdate)
	}
	if len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
		return ledger.Event{}, fmt.Errorf("log is not %s", eventIndexUpdate)
	}

	var out indexUpdate
	if err := parsed.UnpackIntoInterface(&out, eventIndexUpdate, lg.Data); err != nil {
		return ledger.Event{}, fmt.Errorf("unpack %s: %w", eventIndexUpdate, err)
	}
	return ledger.Event{Key: ledger.Key(out.Key), Value: out.Value, Block: lg.BlockNumber}, nil
}
