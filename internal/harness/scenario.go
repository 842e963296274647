package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/seedsindex/internal/engine"
	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

// Scenario defines a synchronization scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Self is the key this node publishes under. Zero disables
	// publish and retract steps.
	Self uint64 `yaml:"self,omitempty"`

	// Seed is the ledger content before the synchronizer starts.
	Seed []Entry `yaml:"seed,omitempty"`

	// FailFetch lists keys whose bootstrap read fails.
	FailFetch []uint64 `yaml:"fail_fetch,omitempty"`

	// FailKeys makes key enumeration fail, so Start fails.
	FailKeys string `yaml:"fail_keys,omitempty"`

	// Flow runs in order once the synchronizer is LIVE.
	Flow []Step `yaml:"flow,omitempty"`

	// Assertions validate the final index.
	Assertions []Assertion `yaml:"assertions"`
}

// Entry describes one ledger value.
type Entry struct {
	Key uint64 `yaml:"key"`

	// Location and Topics are encoded with the record codec.
	Location string   `yaml:"location,omitempty"`
	Topics   []string `yaml:"topics,omitempty"`

	// Payload is stored verbatim instead of an encoded record.
	Payload string `yaml:"payload,omitempty"`

	// Delete produces an empty value.
	Delete bool `yaml:"delete,omitempty"`
}

// Step is one flow action. Exactly one field must be set.
type Step struct {
	Emit    *Entry   `yaml:"emit,omitempty"`
	Publish *Publish `yaml:"publish,omitempty"`
	Retract bool     `yaml:"retract,omitempty"`
	Drop    string   `yaml:"drop,omitempty"`
}

// Publish is a self-publish step.
type Publish struct {
	Location string   `yaml:"location"`
	Topics   []string `yaml:"topics,omitempty"`
}

// Assertion validates the final index.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Key is used by record and absent.
	Key uint64 `yaml:"key,omitempty"`

	// Location and Topics are expected values for record. Topics is
	// compared only when listed.
	Location string   `yaml:"location,omitempty"`
	Topics   []string `yaml:"topics,omitempty"`

	// Topic is the find filter; empty means any topic.
	Topic string `yaml:"topic,omitempty"`

	// Keys is the exact find result, in any order.
	Keys []uint64 `yaml:"keys,omitempty"`

	// Count is the expected cache size.
	Count int `yaml:"count,omitempty"`

	// State is the expected synchronizer state name.
	State string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord = "record"
	AssertAbsent = "absent"
	AssertCount  = "count"
	AssertFind   = "find"
	AssertState  = "state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario is LoadScenario for in-memory YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// Value renders the entry as a ledger value.
func (e Entry) Value() (string, error) {
	switch {
	case e.Delete:
		return "", nil
	case e.Payload != "":
		return e.Payload, nil
	}

	tags, err := parseTopics(e.Topics)
	if err != nil {
		return "", err
	}
	r, err := record.New(e.Location, tags...)
	if err != nil {
		return "", err
	}
	return record.Encode(r)
}

func parseTopics(labels []string) ([]topic.Tag, error) {
	tags := make([]topic.Tag, 0, len(labels))
	for _, label := range labels {
		tag, ok := topic.ByLabel(label)
		if !ok {
			return nil, fmt.Errorf("unknown topic %q", label)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, e := range s.Seed {
		if err := validateEntry(e); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if e.Delete {
			return fmt.Errorf("seed[%d]: delete is not allowed in seed", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(s, step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		// Nothing is applied after the subscription is lost.
		if step.Drop != "" && i != len(s.Flow)-1 {
			return fmt.Errorf("flow[%d]: drop must be the last step", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateEntry(e Entry) error {
	if e.Key == 0 {
		return fmt.Errorf("key is required and must be non-zero")
	}
	if e.Delete || e.Payload != "" {
		return nil
	}
	_, err := e.Value()
	return err
}

func validateStep(s *Scenario, step Step) error {
	set := 0
	if step.Emit != nil {
		set++
		if err := validateEntry(*step.Emit); err != nil {
			return fmt.Errorf("emit: %w", err)
		}
	}
	if step.Publish != nil {
		set++
		if _, err := parseTopics(step.Publish.Topics); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
	if step.Retract {
		set++
	}
	if step.Drop != "" {
		set++
	}

	if set != 1 {
		return fmt.Errorf("exactly one of emit, publish, retract, drop is required")
	}
	if (step.Publish != nil || step.Retract) && s.Self == 0 {
		return fmt.Errorf("self is required for publish and retract")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertRecord:
		if a.Key == 0 {
			return fmt.Errorf("key is required for record")
		}
		if a.Location == "" {
			return fmt.Errorf("location is required for record")
		}
		_, err := parseTopics(a.Topics)
		return err
	case AssertAbsent:
		if a.Key == 0 {
			return fmt.Errorf("key is required for absent")
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertFind:
		if a.Topic != "" {
			if _, ok := topic.ByLabel(a.Topic); !ok {
				return fmt.Errorf("unknown topic %q", a.Topic)
			}
		}
	case AssertState:
		if _, ok := engine.ParseState(a.State); !ok {
			return fmt.Errorf("unknown state %q", a.State)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
