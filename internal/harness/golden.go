package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/repcl/internal/canonical"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to generic values. Advance steps
// carry no clock state, and merges name their sender.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		eventMap := map[string]any{
			"seq": ev.Seq,
			"op":  ev.Op,
		}
		if ev.Op == OpAdvance {
			eventMap["now_ms"] = ev.NowMS
			traceList[i] = eventMap
			continue
		}

		tracked := make([]any, len(ev.Tracked))
		for j, e := range ev.Tracked {
			tracked[j] = map[string]any{
				"proc_id": e.ProcID,
				"offset":  e.Offset,
			}
		}
		vector := make([]any, len(ev.Vector))
		for j, c := range ev.Vector {
			vector[j] = c
		}

		eventMap["proc"] = ev.Proc
		eventMap["clock"] = map[string]any{
			"hlc":        ev.Clock.HLC,
			"offset_bmp": ev.Clock.OffsetBmp,
			"offsets":    ev.Clock.Offsets,
			"counters":   ev.Clock.Counters,
			"tracked":    tracked,
		}
		eventMap["vector"] = vector
		if ev.From != nil {
			eventMap["from"] = *ev.From
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// MarshalTrace returns the canonical JSON form of a scenario trace, as
// stored in golden files.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: trace}
	return canonical.Marshal(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
