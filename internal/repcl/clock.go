package repcl

import (
	"fmt"
	"time"

	"github.com/roach88/repcl/internal/bitfield"
	"github.com/roach88/repcl/internal/epoch"
)

// EpochSource reports the current epoch. It must never decrease.
// *epoch.Source satisfies it.
type EpochSource interface {
	Current() uint64
}

// Clock is one process's replay clock.
type Clock struct {
	cfg    Config
	epochs EpochSource

	hlc      uint64
	tab      table
	counters uint64
}

// New creates a clock at the current epoch with no tracked offsets.
func New(cfg Config, epochs EpochSource) (*Clock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if epochs == nil {
		return nil, configError("epoch source is required")
	}
	return &Clock{
		cfg:    cfg,
		epochs: epochs,
		hlc:    epochs.Current(),
		tab:    table{width: BitsPerOffset(cfg.Epsilon), epsilon: cfg.Epsilon},
	}, nil
}

// NewSystem creates a clock whose epochs follow the host clock.
func NewSystem(cfg Config) (*Clock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src, err := epoch.NewSource(epoch.SystemTime{}, cfg.Interval)
	if err != nil {
		return nil, &ClockError{Code: ErrCodeConfiguration, Message: "epoch source", Err: err}
	}
	return New(cfg, src)
}

// Restore creates a clock holding the state of s. The snapshot must belong
// to cfg.ProcID and satisfy the invariants of cfg.
func Restore(cfg Config, epochs EpochSource, s Snapshot) (*Clock, error) {
	c, err := New(cfg, epochs)
	if err != nil {
		return nil, err
	}
	if s.ProcID != cfg.ProcID {
		return nil, snapshotError("snapshot of process %d restored into process %d", s.ProcID, cfg.ProcID)
	}
	if err := s.Validate(cfg); err != nil {
		return nil, err
	}
	c.hlc = s.HLC
	c.tab.bmp = s.OffsetBmp
	c.tab.offsets = s.Offsets
	c.counters = s.Counters
	return c, nil
}

// Config returns the clock's construction parameters.
func (c *Clock) Config() Config { return c.cfg }

// ProcID returns the owning process.
func (c *Clock) ProcID() int { return c.cfg.ProcID }

// HLC returns the current epoch.
func (c *Clock) HLC() uint64 { return c.hlc }

// Bitmap returns the offset bitmap.
func (c *Clock) Bitmap() uint64 { return c.tab.bmp }

// Offsets returns the packed offset word.
func (c *Clock) Offsets() uint64 { return c.tab.offsets }

// Counters returns the tie-break counter.
func (c *Clock) Counters() uint64 { return c.counters }

// Offset returns the offset recorded for pid and whether it is tracked.
func (c *Clock) Offset(pid int) (uint64, bool) {
	if pid < 0 || pid >= c.cfg.ProcCount {
		return 0, false
	}
	return c.tab.lookup(pid)
}

// Tracked lists the tracked offsets in ascending process order.
func (c *Clock) Tracked() []Entry {
	return c.tab.entries()
}

// Snapshot returns the clock state as a value suitable for transmission.
func (c *Clock) Snapshot() Snapshot {
	return Snapshot{
		ProcID:    c.cfg.ProcID,
		HLC:       c.hlc,
		OffsetBmp: c.tab.bmp,
		Offsets:   c.tab.offsets,
		Counters:  c.counters,
	}
}

// String renders the clock in its binary layout.
func (c *Clock) String() string {
	return c.Snapshot().String()
}

// Shift advances the clock to newHLC without recording an event. Every
// tracked offset ages by newHLC - hlc; offsets reaching epsilon are evicted.
// Shifting to the current epoch is a no-op.
func (c *Clock) Shift(newHLC uint64) error {
	if newHLC < c.hlc {
		return &ClockError{
			Code:    ErrCodeEpochRegression,
			Message: fmt.Sprintf("shift to epoch %d below current epoch %d", newHLC, c.hlc),
		}
	}
	c.shift(newHLC)
	return nil
}

func (c *Clock) shift(newHLC uint64) {
	c.tab.age(newHLC - c.hlc)
	c.hlc = newHLC
}

// Tick records a local event. The returned duration is the time spent in
// the call and is meant for instrumentation only.
func (c *Clock) Tick() time.Duration {
	start := time.Now()

	e := max(c.hlc, c.epochs.Current())
	delta := e - c.hlc
	// An untracked own slot is treated as fresh.
	own, _ := c.tab.lookup(c.cfg.ProcID)

	switch {
	case e == c.hlc && own <= delta:
		c.counters++
		c.tab.put(c.cfg.ProcID, own)
	case e == c.hlc:
		c.tab.put(c.cfg.ProcID, min(delta, own))
		c.counters = 0
	default:
		c.counters = 0
		c.shift(e)
		c.tab.put(c.cfg.ProcID, 0)
	}

	return time.Since(start)
}

// Merge records receipt of other. Both sides are aged to a common epoch,
// their offsets joined by per-process minimum, and the counter recomputed
// from how the result compares with each input. other is not modified.
// The returned duration is for instrumentation only.
func (c *Clock) Merge(other Snapshot) time.Duration {
	start := time.Now()

	before := c.Snapshot()
	target := max(c.hlc, other.HLC, c.epochs.Current())

	c.shift(target)

	theirs := table{
		bmp:     other.OffsetBmp & bitfield.Mask(uint(c.cfg.ProcCount)),
		offsets: other.Offsets,
		width:   c.tab.width,
		epsilon: c.tab.epsilon,
	}
	theirs.age(target - other.HLC)
	c.tab = c.tab.join(&theirs)

	c.counters = tieBreak(before, other, c.Snapshot())
	c.tab.put(c.cfg.ProcID, 0)

	return time.Since(start)
}

// tieBreak picks the counter of a merged state from the pre-merge states.
//
//	both inputs equal merged  -> max(self, other) + 1
//	only self equals merged   -> self + 1
//	only other equals merged  -> other + 1
//	neither                   -> 0
func tieBreak(self, other, merged Snapshot) uint64 {
	selfEq := self.EqualOffsets(merged)
	otherEq := other.EqualOffsets(merged)

	switch {
	case selfEq && otherEq:
		return max(self.Counters, other.Counters) + 1
	case selfEq:
		return self.Counters + 1
	case otherEq:
		return other.Counters + 1
	default:
		return 0
	}
}
