// Package evm implements ledger.Gateway against the registry storage
// contract on a Besu (or any EVM) network, using go-ethereum bindings.
//
// The contract exposes getKeys, getValue, setValue and deleteValue, and
// emits IndexUpdate(bytes32 key, string value) on every write; an empty
// value marks a deletion. Writes are signed with the node key, submitted
// with static gas settings and waited on until mined.
//
// Live subscriptions use eth_subscribe, so the endpoint must be a
// websocket (ws:// or wss://) or IPC path. Bounded ranges use eth_getLogs
// and work over HTTP.
package evm
