package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

// evaluateAssertion dispatches on the assertion type.
func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertState:
		return assertState(result.Final, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertHLCMonotonic:
		return assertHLCMonotonic(result.Trace)
	case AssertVector:
		return assertVector(result.Final, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertState(final []ProcessState, a Assertion) error {
	if a.Proc < 0 || a.Proc >= len(final) {
		return fmt.Errorf("process %d out of range", a.Proc)
	}
	if err := checkExpectation(final[a.Proc], a.Expectation); err != nil {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("process %d %s", a.Proc, describeExpectation(a.Expectation)),
			Actual:   err.Error(),
		}
	}
	return nil
}

// assertTraceCount checks that the step kind appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
		}
	}
	return nil
}

// assertHLCMonotonic checks that no process ever observed its hlc decrease.
func assertHLCMonotonic(trace []TraceEvent) error {
	last := make(map[int]uint64)
	for _, ev := range trace {
		if ev.Op == OpAdvance {
			continue
		}
		if prev, ok := last[ev.Proc]; ok && ev.Clock.HLC < prev {
			return &AssertionError{
				Type:     AssertHLCMonotonic,
				Expected: fmt.Sprintf("process %d hlc >= %d", ev.Proc, prev),
				Actual:   fmt.Sprintf("hlc %d at seq %d", ev.Clock.HLC, ev.Seq),
			}
		}
		last[ev.Proc] = ev.Clock.HLC
	}
	return nil
}

func assertVector(final []ProcessState, a Assertion) error {
	if a.Proc < 0 || a.Proc >= len(final) {
		return fmt.Errorf("process %d out of range", a.Proc)
	}
	if got := final[a.Proc].Vector; !slices.Equal(got, a.Vector) {
		return &AssertionError{
			Type:     AssertVector,
			Expected: fmt.Sprintf("process %d vector %v", a.Proc, a.Vector),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// checkExpectation compares the set fields of want against st.
func checkExpectation(st ProcessState, want Expectation) error {
	s := st.Clock
	if want.HLC != nil && s.HLC != *want.HLC {
		return fmt.Errorf("hlc %d, want %d", s.HLC, *want.HLC)
	}
	if want.Counters != nil && s.Counters != *want.Counters {
		return fmt.Errorf("counters %d, want %d", s.Counters, *want.Counters)
	}
	if want.Offsets == nil {
		return nil
	}

	got := make(map[int]uint64)
	for _, e := range st.Tracked {
		got[e.ProcID] = e.Offset
	}
	if !maps.Equal(got, want.Offsets) {
		return fmt.Errorf("offsets %s, want %s", formatOffsets(got), formatOffsets(want.Offsets))
	}
	return nil
}

func describeExpectation(e Expectation) string {
	var parts []string
	if e.HLC != nil {
		parts = append(parts, fmt.Sprintf("hlc=%d", *e.HLC))
	}
	if e.Counters != nil {
		parts = append(parts, fmt.Sprintf("counters=%d", *e.Counters))
	}
	if e.Offsets != nil {
		parts = append(parts, "offsets="+formatOffsets(e.Offsets))
	}
	return strings.Join(parts, " ")
}

func formatOffsets(m map[int]uint64) string {
	parts := make([]string, 0, len(m))
	for _, pid := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%d:%d", pid, m[pid]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
