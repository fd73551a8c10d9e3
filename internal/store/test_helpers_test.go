package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/repcl/internal/config"
	"github.com/roach88/repcl/internal/repcl"
	"github.com/roach88/repcl/internal/sim"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with a small valid config.
func createTestRun(id string, started time.Time) sim.RunInfo {
	return sim.RunInfo{
		ID:        id,
		StartedAt: started,
		Seed:      7,
		Config: config.Config{
			Procs:        3,
			Epsilon:      8,
			IntervalMS:   10,
			WordWidth:    16,
			CounterWidth: 8,
			Iterations:   5,
		},
	}
}

// createTestEvent creates an event of process proc.
func createTestEvent(runID string, seq int64, op sim.Op, proc, peer int) sim.Event {
	return sim.Event{
		RunID: runID,
		Seq:   seq,
		Op:    op,
		Proc:  proc,
		Peer:  peer,
		Clock: repcl.Snapshot{
			ProcID:    proc,
			HLC:       uint64(100 + seq),
			OffsetBmp: 1 << proc,
			Counters:  uint64(seq),
		},
		Vector:  []uint64{uint64(seq), 0, 1},
		Elapsed: time.Duration(seq) * time.Microsecond,
	}
}
