package repcl

import (
	"math/bits"
	"slices"
	"time"

	"github.com/roach88/repcl/internal/bitfield"
)

// MaxProcesses is the number of processes one offset bitmap can address.
const MaxProcesses = bitfield.WordBits

// WordWidths lists the supported packed-word widths.
var WordWidths = []int{8, 16, 32, 64}

// Config holds the construction parameters of a clock.
type Config struct {
	// ProcID identifies the owning process, 0 <= ProcID < ProcCount.
	ProcID int

	// ProcCount is the number of cooperating processes.
	ProcCount int

	// WordWidth is the width in bits of the packed offset word.
	WordWidth int

	// Interval is the width of one epoch.
	Interval time.Duration

	// Epsilon is the exclusive upper bound on a stored offset.
	Epsilon uint64
}

// BitsPerOffset returns ceil(log2(epsilon)), the slot width for epsilon.
// Epsilon 1 needs no bits: the only representable offset is 0.
func BitsPerOffset(epsilon uint64) uint {
	if epsilon == 0 {
		return 0
	}
	return uint(bits.Len64(epsilon - 1))
}

// Validate checks the parameters, including the capacity invariant
// ProcCount * BitsPerOffset(Epsilon) <= WordWidth.
func (c Config) Validate() error {
	if c.ProcCount < 1 || c.ProcCount > MaxProcesses {
		return configError("process count %d out of range [1, %d]", c.ProcCount, MaxProcesses)
	}
	if c.ProcID < 0 || c.ProcID >= c.ProcCount {
		return configError("process id %d out of range [0, %d)", c.ProcID, c.ProcCount)
	}
	if !slices.Contains(WordWidths, c.WordWidth) {
		return configError("word width %d not one of %v", c.WordWidth, WordWidths)
	}
	if c.Interval <= 0 {
		return configError("epoch interval must be positive, got %s", c.Interval)
	}
	if c.Epsilon == 0 {
		return configError("epsilon must be positive")
	}
	need := c.ProcCount * int(BitsPerOffset(c.Epsilon))
	if need > c.WordWidth {
		return configError("%d processes x %d bits per offset = %d bits exceeds word width %d",
			c.ProcCount, BitsPerOffset(c.Epsilon), need, c.WordWidth)
	}
	return nil
}

// ForProcess returns a copy of c owned by procID.
func (c Config) ForProcess(procID int) Config {
	c.ProcID = procID
	return c
}
