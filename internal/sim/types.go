package sim

import (
	"context"
	"time"

	"github.com/roach88/repcl/internal/config"
	"github.com/roach88/repcl/internal/repcl"
)

// Op is the kind of a simulated event.
type Op string

const (
	// OpTick is a local event.
	OpTick Op = "tick"
	// OpMerge is the receipt of another process's state.
	OpMerge Op = "merge"
)

// RunInfo describes a simulation run.
type RunInfo struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Seed      uint64        `json:"seed"`
	Config    config.Config `json:"config"`
}

// Event is one simulated step and the resulting state of the acting
// process.
type Event struct {
	RunID string `json:"run_id"`
	Seq   int64  `json:"seq"`
	Op    Op     `json:"op"`
	Proc  int    `json:"proc"`

	// Peer is the sender of a merge. It equals Proc for a tick.
	Peer int `json:"peer"`

	Clock  repcl.Snapshot `json:"clock"`
	Vector []uint64       `json:"vector"`

	// Elapsed is the time spent inside the replay clock operation.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Recorder persists runs and their events.
// Implemented by store.Store.
type Recorder interface {
	BeginRun(ctx context.Context, run RunInfo) error
	RecordEvent(ctx context.Context, ev Event) error
}

// Stats summarizes a run.
type Stats struct {
	RunID      string        `json:"run_id"`
	Seed       uint64        `json:"seed"`
	Iterations int           `json:"iterations"`
	Ticks      int           `json:"ticks"`
	Merges     int           `json:"merges"`
	TickTime   time.Duration `json:"tick_ns"`
	MergeTime  time.Duration `json:"merge_ns"`

	// RepClBits and VectorBits are the encoded sizes of one clock of each
	// kind.
	RepClBits  int `json:"repcl_bits"`
	VectorBits int `json:"vector_bits"`
}

// MeanTick returns the mean duration of a replay clock tick.
func (s Stats) MeanTick() time.Duration {
	if s.Ticks == 0 {
		return 0
	}
	return s.TickTime / time.Duration(s.Ticks)
}

// MeanMerge returns the mean duration of a replay clock merge.
func (s Stats) MeanMerge() time.Duration {
	if s.Merges == 0 {
		return 0
	}
	return s.MergeTime / time.Duration(s.Merges)
}
