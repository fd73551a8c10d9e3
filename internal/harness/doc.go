// Package harness runs deterministic clock scenarios.
//
// A scenario scripts ticks, merges and time advances against a manual time
// source, so every run of a scenario produces the same trace. Each process
// carries a replay clock and a vector clock; merges move the replay clock
// snapshot through the wire codec exactly as a simulation does.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	clock:
//	  procs: 2
//	  epsilon: 8
//	  word_width: 64     # optional, default 64
//	  interval_ms: 1     # optional, default 1
//	  counter_width: 8   # optional, default 8
//	start_ms: 50
//	steps:
//	  - tick: 0
//	  - advance_ms: 3
//	  - merge: { into: 0, from: 1 }
//	    expect: { proc: 0, hlc: 53, counters: 0 }
//	assertions:
//	  - type: state
//	    proc: 0
//	    hlc: 53
//	    offsets: { 0: 0, 1: 0 }
//	  - type: trace_count
//	    op: merge
//	    count: 1
//	  - type: hlc_monotonic
//	  - type: vector
//	    proc: 0
//	    vector: [2, 1]
//
// # Assertion Types
//
//   - state: checks hlc, counters and the exact set of tracked offsets of a
//     process after the last step
//   - trace_count: checks how many steps of an op the trace holds
//   - hlc_monotonic: checks that no process's hlc ever decreased
//   - vector: checks the vector clock of a process after the last step
//
// A step may carry an expect clause with the fields of a state assertion;
// it is checked right after the step.
//
// # Golden Traces
//
// RunWithGolden compares the canonical JSON trace of a scenario against
// testdata/golden/{name}.golden. To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
