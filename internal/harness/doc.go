// Package harness replays synchronization scenarios against an in-memory
// ledger and checks the resulting index.
//
// A scenario seeds the ledger, starts a Synchronizer, feeds it a flow of
// live events, self-publishes and subscription drops, and then asserts on
// the final cache. Every step is recorded in a trace so runs can be
// compared against golden snapshots.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	self: 9                 # optional key used for publish/retract
//	seed:
//	  - key: 1
//	    location: https://one.example
//	    topics: [Education]
//	  - key: 2
//	    payload: "{not json"
//	fail_fetch: [3]         # keys whose bootstrap read fails
//	flow:
//	  - emit: { key: 1, delete: true }
//	  - publish: { location: https://me.example, topics: [Health] }
//	  - retract: true
//	  - drop: "connection reset"
//	assertions:
//	  - type: record
//	    key: 2
//	    location: https://two.example
//	  - type: find
//	    topic: Education
//	    keys: [1, 4]
//
// Keys are small integers expanded with testutil.Key, so traces and golden
// files stay readable.
//
// # Assertion Types
//
//   - record: the key is cached with the given location (and topics, if listed)
//   - absent: the key is not cached
//   - count: the cache holds exactly count records
//   - find: FindByTopic(topic) returns exactly keys; an empty topic means any
//   - state: the synchronizer is in the named state
//
// # Deterministic Testing
//
// Bootstrap runs sequentially and each flow step waits until the
// synchronizer has applied the event it caused, so traces are identical
// across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/live_delete.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
