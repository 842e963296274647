// Package sqlite implements ledger.Gateway on a local SQLite file.
//
// It stands in for the chain during development: several seedsindex
// processes pointed at the same file see each other's writes through the
// update log, the same way nodes see contract events.
//
// # Schema
//
//   - entries: current value per key (hex text, 0x-prefixed)
//   - updates: append-only log (seq, key, value, tx_hash); seq is the block
//
// Every write inserts into both tables in one transaction, so a subscriber
// polling updates never sees a value that entries does not reflect.
//
// # Database Configuration
//
//   - WAL mode: other processes read while one writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
package sqlite
