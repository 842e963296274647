package harness

import (
	"github.com/roach88/seedsindex/internal/engine"
	"github.com/roach88/seedsindex/internal/record"
)

// Trace step names.
const (
	StepStart   = "start"
	StepEmit    = "emit"
	StepPublish = "publish"
	StepRetract = "retract"
	StepDrop    = "drop"
)

// Trace outcomes for steps that reach the apply rule.
const (
	OutcomeApplied = "applied"
	OutcomeRemoved = "removed"
	OutcomeSkipped = "skipped"
	OutcomeNoop    = "noop"
	OutcomeLive    = "live"
)

// TraceEvent records one executed step and the index right after it.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Step    string `json:"step"`
	Key     uint64 `json:"key,omitempty"`
	Outcome string `json:"outcome"`
	State   string `json:"state"`
	Records int    `json:"records"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State, Stats and Records capture the synchronizer after the flow.
	State   string          `json:"state"`
	Stats   engine.Stats    `json:"stats"`
	Records []record.Record `json:"records"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Records: []record.Record{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace, numbering it.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
