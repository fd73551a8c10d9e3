package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repcl/internal/repcl"
)

func tickEvent(seq int64, proc int, hlc uint64) TraceEvent {
	return TraceEvent{Seq: seq, Op: OpTick, Proc: proc, Clock: repcl.Snapshot{ProcID: proc, HLC: hlc}}
}

func TestAssertTraceCount_Exact(t *testing.T) {
	trace := []TraceEvent{
		tickEvent(1, 0, 5),
		{Seq: 2, Op: OpAdvance, NowMS: 6},
		tickEvent(3, 1, 6),
	}

	assert.NoError(t, assertTraceCount(trace, Assertion{Op: OpTick, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: OpAdvance, Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: OpMerge, Count: 0}))
}

func TestAssertTraceCount_Mismatch(t *testing.T) {
	err := assertTraceCount([]TraceEvent{tickEvent(1, 0, 5)}, Assertion{Op: OpTick, Count: 3})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceCount, ae.Type)
	assert.Equal(t, "3 occurrences of tick", ae.Expected)
	assert.Equal(t, "1 occurrences", ae.Actual)
}

func TestAssertHLCMonotonic(t *testing.T) {
	t.Run("per process", func(t *testing.T) {
		// Different processes may sit at different epochs.
		trace := []TraceEvent{
			tickEvent(1, 0, 9),
			tickEvent(2, 1, 4),
			{Seq: 3, Op: OpAdvance, NowMS: 10},
			tickEvent(4, 0, 10),
			tickEvent(5, 1, 4),
		}
		assert.NoError(t, assertHLCMonotonic(trace))
	})

	t.Run("regression", func(t *testing.T) {
		trace := []TraceEvent{
			tickEvent(1, 0, 9),
			tickEvent(2, 0, 8),
		}
		err := assertHLCMonotonic(trace)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hlc 8 at seq 2")
	})
}

func TestAssertState(t *testing.T) {
	final := []ProcessState{
		{
			Clock:   repcl.Snapshot{ProcID: 0, HLC: 12, OffsetBmp: 0b11, Offsets: 2, Counters: 1},
			Tracked: []repcl.Entry{{ProcID: 0, Offset: 2}, {ProcID: 1, Offset: 0}},
		},
	}

	tests := []struct {
		name    string
		want    Expectation
		wantErr string
	}{
		{name: "all fields", want: Expectation{HLC: uint64p(12), Counters: uint64p(1), Offsets: map[int]uint64{0: 2, 1: 0}}},
		{name: "nothing set", want: Expectation{}},
		{name: "hlc", want: Expectation{HLC: uint64p(13)}, wantErr: "hlc 12, want 13"},
		{name: "counters", want: Expectation{Counters: uint64p(0)}, wantErr: "counters 1, want 0"},
		{name: "missing offset", want: Expectation{Offsets: map[int]uint64{0: 2}}, wantErr: "offsets {0:2 1:0}, want {0:2}"},
		{name: "wrong offset", want: Expectation{Offsets: map[int]uint64{0: 1, 1: 0}}, wantErr: "want {0:1 1:0}"},
		{name: "empty offsets", want: Expectation{Offsets: map[int]uint64{}}, wantErr: "want {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertState(final, Assertion{Type: AssertState, Expectation: tt.want})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Contains(t, ae.Actual, tt.wantErr)
		})
	}
}

func TestAssertVector(t *testing.T) {
	final := []ProcessState{{Vector: []uint64{1, 0}}, {Vector: []uint64{1, 2}}}

	assert.NoError(t, assertVector(final, Assertion{Expectation: Expectation{Proc: 1}, Vector: []uint64{1, 2}}))

	err := assertVector(final, Assertion{Expectation: Expectation{Proc: 0}, Vector: []uint64{1, 2}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "[1 0]", ae.Actual)

	assert.Error(t, assertVector(final, Assertion{Expectation: Expectation{Proc: 2}}))
}

func TestEvaluateAssertion_UnknownType(t *testing.T) {
	err := evaluateAssertion(NewResult(), Assertion{Type: "final_state"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown assertion type")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertTraceCount, Expected: "2 occurrences of merge", Actual: "0 occurrences"}
	assert.Equal(t,
		"assertion failed: trace_count\n  expected: 2 occurrences of merge\n  actual: 0 occurrences",
		err.Error())
}
