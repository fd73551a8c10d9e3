package vecclock

import (
	"fmt"
	"slices"
	"strings"
)

// Clock is the vector clock of one process.
type Clock struct {
	procID   int
	width    uint
	counters []uint64
}

// New creates a zeroed clock for procID among procCount processes, with
// counters of width bits (1..64).
func New(procID, procCount int, width uint) (*Clock, error) {
	if procCount < 1 {
		return nil, fmt.Errorf("vecclock: process count %d must be positive", procCount)
	}
	if procID < 0 || procID >= procCount {
		return nil, fmt.Errorf("vecclock: process id %d out of range [0, %d)", procID, procCount)
	}
	if width < 1 || width > 64 {
		return nil, fmt.Errorf("vecclock: counter width %d out of range [1, 64]", width)
	}
	return &Clock{procID: procID, width: width, counters: make([]uint64, procCount)}, nil
}

// ProcID returns the owning process.
func (c *Clock) ProcID() int { return c.procID }

// Limit returns the largest value a counter can hold.
func (c *Clock) Limit() uint64 {
	return ^uint64(0) >> (64 - c.width)
}

// Counters returns a copy of the counters.
func (c *Clock) Counters() []uint64 {
	return slices.Clone(c.counters)
}

// Get returns the counter of pid.
func (c *Clock) Get(pid int) uint64 {
	return c.counters[pid]
}

// Advance increments the counter of pid. A counter at Limit stays there.
func (c *Clock) Advance(pid int) {
	if c.counters[pid] < c.Limit() {
		c.counters[pid]++
	}
}

// Tick records a local event.
func (c *Clock) Tick() {
	c.Advance(c.procID)
}

// Merge takes the element-wise maximum with other and then records the
// receive event. other must have one counter per process.
func (c *Clock) Merge(other []uint64) error {
	if len(other) != len(c.counters) {
		return fmt.Errorf("vecclock: merge of %d counters into %d", len(other), len(c.counters))
	}
	for i, v := range other {
		c.counters[i] = max(c.counters[i], min(v, c.Limit()))
	}
	c.Advance(c.procID)
	return nil
}

// SizeBits returns the encoded size of the clock.
func (c *Clock) SizeBits() int {
	return len(c.counters) * int(c.width)
}

// String renders the clock.
func (c *Clock) String() string {
	parts := make([]string, len(c.counters))
	for i, v := range c.counters {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("VectorCl(proc_id=%d, counters=[%s])", c.procID, strings.Join(parts, ", "))
}
