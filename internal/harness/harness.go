package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/seedsindex/internal/engine"
	"github.com/roach88/seedsindex/internal/ledger"
	"github.com/roach88/seedsindex/internal/ledger/memledger"
	"github.com/roach88/seedsindex/internal/publisher"
	"github.com/roach88/seedsindex/internal/query"
	"github.com/roach88/seedsindex/internal/testutil"
)

// StepTimeout bounds how long a step waits for the synchronizer to apply
// the event it caused.
const StepTimeout = 2 * time.Second

// Harness drives one scenario run.
type Harness struct {
	ledger *memledger.Ledger
	sync   *engine.Synchronizer
	pub    *publisher.Publisher
	query  *query.Engine
	result *Result
}

// Run executes a scenario against a fresh in-memory ledger and evaluates
// its assertions. A start failure is recorded in the trace, not returned;
// errors are reserved for steps the harness itself could not carry out.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	l := memledger.New()
	for i, e := range scenario.Seed {
		v, err := e.Value()
		if err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
		l.Seed(testutil.Key(e.Key), v)
	}
	for _, k := range scenario.FailFetch {
		l.FailValue(testutil.Key(k), errors.New("injected fetch failure"))
	}
	if scenario.FailKeys != "" {
		l.FailKeys(errors.New(scenario.FailKeys))
	}

	s := engine.New(l, engine.WithBootstrapConcurrency(1))
	defer func() {
		if err := s.Shutdown(); err != nil {
			slog.Debug("harness shutdown", "error", err)
		}
	}()

	h := &Harness{
		ledger: l,
		sync:   s,
		query:  query.New(s.Cache()),
		result: NewResult(),
	}
	if scenario.Self != 0 {
		h.pub = publisher.New(l, s.Cache(), testutil.Key(scenario.Self))
	}

	if err := s.Start(ctx); err != nil {
		h.trace(StepStart, 0, errorOutcome(err))
	} else {
		h.trace(StepStart, 0, OutcomeLive)
		if err := h.executeFlow(ctx, scenario.Flow); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	h.capture()
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, h.query) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) executeFlow(ctx context.Context, flow []Step) error {
	for i, step := range flow {
		if err := h.executeStep(ctx, step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	return nil
}

func errNoSelf(step string) error {
	return fmt.Errorf("%s: scenario has no self key", step)
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	before := h.sync.Stats()

	switch {
	case step.Emit != nil:
		v, err := step.Emit.Value()
		if err != nil {
			return err
		}
		h.ledger.Emit(testutil.Key(step.Emit.Key), v)
		return h.settle(ctx, StepEmit, step.Emit.Key, before)

	case step.Publish != nil:
		if h.pub == nil {
			return errNoSelf("publish")
		}
		tags, err := parseTopics(step.Publish.Topics)
		if err != nil {
			return err
		}
		if _, err := h.pub.Publish(ctx, step.Publish.Location, tags...); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		return h.settle(ctx, StepPublish, selfKey(h.pub.ID()), before)

	case step.Retract:
		if h.pub == nil {
			return errNoSelf("retract")
		}
		if _, err := h.pub.Retract(ctx); err != nil {
			return fmt.Errorf("retract: %w", err)
		}
		return h.settle(ctx, StepRetract, selfKey(h.pub.ID()), before)

	case step.Drop != "":
		h.ledger.Drop(errors.New(step.Drop))
		select {
		case err := <-h.sync.Err():
			h.trace(StepDrop, 0, errorOutcome(err))
			return nil
		case <-time.After(StepTimeout):
			return errors.New("drop: synchronizer did not report the lost subscription")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.New("empty step")
}

// settle waits for the live event caused by a step and traces how the
// apply rule handled it.
func (h *Harness) settle(ctx context.Context, step string, key uint64, before engine.Stats) error {
	after, err := h.waitProcessed(ctx, before.Processed+1)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	h.trace(step, key, applyOutcome(before, after))
	return nil
}

func (h *Harness) waitProcessed(ctx context.Context, n uint64) (engine.Stats, error) {
	deadline := time.NewTimer(StepTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	for {
		st := h.sync.Stats()
		if st.Processed >= n {
			return st, nil
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return st, fmt.Errorf("timed out waiting for event %d to apply", n)
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

func (h *Harness) trace(step string, key uint64, outcome string) {
	h.result.AddTrace(TraceEvent{
		Step:    step,
		Key:     key,
		Outcome: outcome,
		State:   h.sync.State().String(),
		Records: h.sync.Cache().Len(),
	})
}

// capture copies the final synchronizer view into the result, records
// sorted by id.
func (h *Harness) capture() {
	h.result.State = h.sync.State().String()
	h.result.Stats = h.sync.Stats()
	recs := h.sync.Cache().Snapshot()
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	h.result.Records = append(h.result.Records, recs...)
}

func applyOutcome(before, after engine.Stats) string {
	switch {
	case after.Applied > before.Applied:
		return OutcomeApplied
	case after.Removed > before.Removed:
		return OutcomeRemoved
	case after.Skipped > before.Skipped:
		return OutcomeSkipped
	default:
		return OutcomeNoop
	}
}

func errorOutcome(err error) string {
	var se *engine.SyncError
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return err.Error()
}

// selfKey recovers the small integer behind a testutil key.
func selfKey(k ledger.Key) uint64 {
	var n uint64
	for _, b := range k[ledger.KeySize-8:] {
		n = n<<8 | uint64(b)
	}
	return n
}
