package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of clock operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock holds the parameters shared by every process.
	Clock ClockParams `yaml:"clock"`

	// StartMS is the manual time, in Unix milliseconds, at which every
	// clock is created.
	StartMS int64 `yaml:"start_ms"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// ClockParams are the construction parameters of the scenario's clocks.
type ClockParams struct {
	Procs        int    `yaml:"procs"`
	Epsilon      uint64 `yaml:"epsilon"`
	WordWidth    int    `yaml:"word_width,omitempty"`
	IntervalMS   int64  `yaml:"interval_ms,omitempty"`
	CounterWidth uint   `yaml:"counter_width,omitempty"`
}

// Step is one operation. Exactly one of Tick, Merge and AdvanceMS is set.
type Step struct {
	// Tick is the process recording a local event.
	Tick *int `yaml:"tick,omitempty"`

	// Merge delivers the state of From to Into.
	Merge *MergeStep `yaml:"merge,omitempty"`

	// AdvanceMS moves the manual time forward.
	AdvanceMS *int64 `yaml:"advance_ms,omitempty"`

	// Expect is checked right after the step.
	Expect *Expectation `yaml:"expect,omitempty"`
}

// MergeStep names the receiver and the sender of a merge.
type MergeStep struct {
	Into int `yaml:"into"`
	From int `yaml:"from"`
}

// Expectation describes the replay clock state of one process. Unset
// fields are not checked; Offsets, when set, must match the tracked
// offsets exactly.
type Expectation struct {
	Proc     int            `yaml:"proc"`
	HLC      *uint64        `yaml:"hlc,omitempty"`
	Counters *uint64        `yaml:"counters,omitempty"`
	Offsets  map[int]uint64 `yaml:"offsets,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "state": Expectation fields against the final replay clock
	// - "trace_count": Op appears exactly Count times
	// - "hlc_monotonic": no process's hlc decreased
	// - "vector": Vector equals the final vector clock of Proc
	Type string `yaml:"type"`

	Expectation `yaml:",inline"`

	// Op is the step kind counted by trace_count.
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Vector is the expected vector clock (used by vector).
	Vector []uint64 `yaml:"vector,omitempty"`
}

// Assertion type constants.
const (
	AssertState        = "state"
	AssertTraceCount   = "trace_count"
	AssertHLCMonotonic = "hlc_monotonic"
	AssertVector       = "vector"
)

// Step kinds as they appear in traces.
const (
	OpTick    = "tick"
	OpMerge   = "merge"
	OpAdvance = "advance"
)

// Defaults for optional clock parameters.
const (
	DefaultWordWidth    = 64
	DefaultIntervalMS   = 1
	DefaultCounterWidth = 8
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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.applyDefaults()
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (s *Scenario) applyDefaults() {
	if s.Clock.WordWidth == 0 {
		s.Clock.WordWidth = DefaultWordWidth
	}
	if s.Clock.IntervalMS == 0 {
		s.Clock.IntervalMS = DefaultIntervalMS
	}
	if s.Clock.CounterWidth == 0 {
		s.Clock.CounterWidth = DefaultCounterWidth
	}
}

// validateScenario checks that required fields are present and valid.
// Clock parameters are checked by Run through the clock constructors.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Clock.Procs < 1 {
		return fmt.Errorf("clock.procs must be positive")
	}
	if s.StartMS < 0 {
		return fmt.Errorf("start_ms must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, s.Clock.Procs); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, s.Clock.Procs); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step, procs int) error {
	set := 0
	if step.Tick != nil {
		set++
		if err := checkProc(*step.Tick, procs); err != nil {
			return fmt.Errorf("steps[%d].tick: %w", index, err)
		}
	}
	if step.Merge != nil {
		set++
		if err := checkProc(step.Merge.Into, procs); err != nil {
			return fmt.Errorf("steps[%d].merge.into: %w", index, err)
		}
		if err := checkProc(step.Merge.From, procs); err != nil {
			return fmt.Errorf("steps[%d].merge.from: %w", index, err)
		}
		if step.Merge.Into == step.Merge.From {
			return fmt.Errorf("steps[%d].merge: a process cannot merge its own state", index)
		}
	}
	if step.AdvanceMS != nil {
		set++
		if *step.AdvanceMS < 0 {
			return fmt.Errorf("steps[%d].advance_ms: must not be negative", index)
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of tick, merge, advance_ms is required", index)
	}
	if step.Expect != nil {
		if err := checkProc(step.Expect.Proc, procs); err != nil {
			return fmt.Errorf("steps[%d].expect.proc: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, procs int) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertState:
		if err := checkProc(a.Proc, procs); err != nil {
			return fmt.Errorf("assertions[%d].proc: %w", index, err)
		}
	case AssertTraceCount:
		if a.Op != OpTick && a.Op != OpMerge && a.Op != OpAdvance {
			return fmt.Errorf("assertions[%d]: op must be tick, merge or advance for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	case AssertHLCMonotonic:
	case AssertVector:
		if err := checkProc(a.Proc, procs); err != nil {
			return fmt.Errorf("assertions[%d].proc: %w", index, err)
		}
		if len(a.Vector) != procs {
			return fmt.Errorf("assertions[%d]: vector needs %d entries, got %d", index, procs, len(a.Vector))
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}

func checkProc(pid, procs int) error {
	if pid < 0 || pid >= procs {
		return fmt.Errorf("process %d out of range [0, %d)", pid, procs)
	}
	return nil
}
