package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/seedsindex/internal/query"
	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/testutil"
	"github.com/roach88/seedsindex/internal/topic"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the result and the
// live query engine. Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, q *query.Engine) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, q); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, q *query.Engine) error {
	switch a.Type {
	case AssertRecord:
		return assertRecord(q, a)
	case AssertAbsent:
		return assertAbsent(q, a)
	case AssertCount:
		if len(result.Records) != a.Count {
			return &AssertionError{
				Type:     AssertCount,
				Expected: fmt.Sprintf("%d records", a.Count),
				Actual:   fmt.Sprintf("%d records", len(result.Records)),
			}
		}
		return nil
	case AssertFind:
		return assertFind(q, a)
	case AssertState:
		if result.State != a.State {
			return &AssertionError{Type: AssertState, Expected: a.State, Actual: result.State}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertRecord(q *query.Engine, a Assertion) error {
	r, ok := q.ByID(testutil.Key(a.Key).Hex())
	if !ok {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("key %d cached at %s", a.Key, a.Location),
			Actual:   "absent",
		}
	}
	if r.Location != a.Location {
		return &AssertionError{Type: AssertRecord, Expected: a.Location, Actual: r.Location}
	}
	if a.Topics != nil {
		if got := labels(r); !slices.Equal(got, a.Topics) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: "[" + strings.Join(a.Topics, ", ") + "]",
				Actual:   "[" + strings.Join(got, ", ") + "]",
			}
		}
	}
	return nil
}

func assertAbsent(q *query.Engine, a Assertion) error {
	if r, ok := q.ByID(testutil.Key(a.Key).Hex()); ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("key %d absent", a.Key),
			Actual:   r.Location,
		}
	}
	return nil
}

func assertFind(q *query.Engine, a Assertion) error {
	tag := topic.Any
	if a.Topic != "" {
		tag, _ = topic.ByLabel(a.Topic)
	}

	want := make([]string, len(a.Keys))
	for i, k := range a.Keys {
		want[i] = testutil.Key(k).Hex()
	}
	slices.Sort(want)

	var got []string
	for _, r := range q.FindByTopic(tag) {
		got = append(got, r.ID)
	}
	slices.Sort(got)

	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFind,
			Expected: fmt.Sprintf("%s -> %v", tag, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func labels(r record.Record) []string {
	out := make([]string, len(r.Topics))
	for i, t := range r.Topics {
		out[i] = t.Label()
	}
	return out
}
