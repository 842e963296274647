// Package engine implements the synchronizer that keeps the local index
// mirrored from the registry ledger.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every cache mutation coming from the ledger passes through one FIFO
// queue and is applied by one goroutine. Two producers feed the queue:
//   - the live subscription forwarder (one goroutine, ledger order)
//   - bootstrap fetches (bounded concurrency, completion order)
//
// Lifecycle:
//
//	UNSTARTED -> SUBSCRIBING -> BOOTSTRAPPING -> LIVE -> SHUTDOWN
//
// Start subscribes before enumerating keys so no update written during
// the scan is missed. Bootstrap results and live events are applied with
// the same rule: an empty value removes the key, anything else is decoded
// and upserted. No versions are compared, so whichever of a live event
// and a bootstrap read for the same key is dequeued last wins. A stale
// bootstrap read can therefore overwrite a newer live event.
//
// When every fetch has been enqueued a marker follows them; the run loop
// switches to LIVE when it reaches the marker, so Ready means every
// bootstrap result has been applied.
//
// Error handling: per-key fetch and decode failures are logged and
// skipped. Failing to subscribe or enumerate keys aborts Start. A dropped
// subscription is reported once on Err and is never retried; the owner
// must Shutdown and build a new Synchronizer.
package engine
