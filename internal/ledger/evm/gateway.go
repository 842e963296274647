package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/roach88/seedsindex/internal/ledger"
)

// Defaults for the static gas provider.
const (
	DefaultGasPrice uint64 = 20_000_000_000
	DefaultGasLimit uint64 = 12_500_000
)

// Config holds what Dial needs to reach and write to the contract.
type Config struct {
	Endpoint   string
	Contract   string
	GasPrice   uint64
	GasLimit   uint64
	PrivateKey *ecdsa.PrivateKey
}

// Gateway talks to the registry contract over JSON-RPC.
type Gateway struct {
	client   *ethclient.Client
	abi      abi.ABI
	contract *bind.BoundContract
	address  common.Address

	// writeMu serializes transactions so nonces are assigned in order.
	writeMu sync.Mutex
	auth    *bind.TransactOpts
}

var _ ledger.Gateway = (*Gateway)(nil)

// Dial connects to the endpoint, checks the chain is reachable and binds
// the contract. A nil PrivateKey yields a read-only gateway.
func Dial(ctx context.Context, cfg Config) (*Gateway, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.Contract)
	}
	parsed, err := parseABI()
	if err != nil {
		return nil, err
	}

	slog.Info("connecting to ledger", "endpoint", cfg.Endpoint)
	client, err := ethclient.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	head, err := client.BlockNumber(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read block number: %w", err)
	}
	slog.Info("connected to ledger", "chain_id", chainID, "block", head)

	address := common.HexToAddress(cfg.Contract)
	g := &Gateway{
		client:   client,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		address:  address,
	}

	if cfg.PrivateKey != nil {
		auth, err := bind.NewKeyedTransactorWithChainID(cfg.PrivateKey, chainID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("create transactor: %w", err)
		}
		gasPrice, gasLimit := cfg.GasPrice, cfg.GasLimit
		if gasPrice == 0 {
			gasPrice = DefaultGasPrice
		}
		if gasLimit == 0 {
			gasLimit = DefaultGasLimit
		}
		auth.GasPrice = new(big.Int).SetUint64(gasPrice)
		auth.GasLimit = gasLimit
		g.auth = auth
		slog.Info("static gas provider", "gas_price", gasPrice, "gas_limit", gasLimit)
	}

	slog.Info("bound storage contract", "address", address.Hex())
	return g, nil
}

// Close releases the RPC connection.
func (g *Gateway) Close() error {
	g.client.Close()
	return nil
}

// Keys calls getKeys.
func (g *Gateway) Keys(ctx context.Context) ([]ledger.Key, error) {
	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetKeys); err != nil {
		return nil, fmt.Errorf("%s: %w", methodGetKeys, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: unexpected %d outputs", methodGetKeys, len(out))
	}
	raw := *abi.ConvertType(out[0], new([][32]byte)).(*[][32]byte)

	keys := make([]ledger.Key, len(raw))
	for i, k := range raw {
		keys[i] = ledger.Key(k)
	}
	return keys, nil
}

// Value calls getValue. The contract returns "" for absent keys.
func (g *Gateway) Value(ctx context.Context, key ledger.Key) (string, bool, error) {
	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetValue, [32]byte(key)); err != nil {
		return "", false, fmt.Errorf("%s %s: %w", methodGetValue, key, err)
	}
	if len(out) != 1 {
		return "", false, fmt.Errorf("%s: unexpected %d outputs", methodGetValue, len(out))
	}
	v := *abi.ConvertType(out[0], new(string)).(*string)
	return v, v != "", nil
}

// SetValue sends setValue and waits for it to be mined.
func (g *Gateway) SetValue(ctx context.Context, key ledger.Key, value string) (ledger.Receipt, error) {
	return g.transact(ctx, methodSetValue, [32]byte(key), value)
}

// DeleteValue sends deleteValue and waits for it to be mined.
func (g *Gateway) DeleteValue(ctx context.Context, key ledger.Key) (ledger.Receipt, error) {
	return g.transact(ctx, methodDeleteValue, [32]byte(key))
}

func (g *Gateway) transact(ctx context.Context, method string, params ...interface{}) (ledger.Receipt, error) {
	if g.auth == nil {
		return ledger.Receipt{}, errors.New("gateway is read-only: no private key")
	}

	g.writeMu.Lock()
	opts := *g.auth
	opts.Context = ctx
	tx, err := g.contract.Transact(&opts, method, params...)
	g.writeMu.Unlock()
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%s: %w", method, err)
	}
	slog.Debug("transaction sent", "method", method, "tx", tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%s: wait mined %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ledger.Receipt{}, fmt.Errorf("%s: transaction %s reverted", method, tx.Hash().Hex())
	}
	return ledger.Receipt{TxHash: tx.Hash().Hex(), Block: receipt.BlockNumber.Uint64()}, nil
}
