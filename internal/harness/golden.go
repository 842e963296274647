package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/seedsindex/internal/engine"
	"github.com/roach88/seedsindex/internal/record"
)

// Snapshot is the golden form of a scenario run.
type Snapshot struct {
	Scenario string          `json:"scenario"`
	Trace    []TraceEvent    `json:"trace"`
	State    string          `json:"state"`
	Stats    engine.Stats    `json:"stats"`
	Records  []record.Record `json:"records"`
}

// MarshalSnapshot renders a result as indented JSON with a trailing newline.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	data, err := json.MarshalIndent(Snapshot{
		Scenario: name,
		Trace:    result.Trace,
		State:    result.State,
		Stats:    result.Stats,
		Records:  result.Records,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
