package repcl

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/roach88/repcl/internal/bitfield"
)

// Snapshot is the transmissible state of a clock.
type Snapshot struct {
	ProcID    int    `json:"proc_id"`
	HLC       uint64 `json:"hlc"`
	OffsetBmp uint64 `json:"offset_bmp"`
	Offsets   uint64 `json:"offsets"`
	Counters  uint64 `json:"counters"`
}

// EqualOffsets reports whether s and o agree on hlc, bitmap and offsets.
// Counters and process ids are ignored.
func (s Snapshot) EqualOffsets(o Snapshot) bool {
	return s.HLC == o.HLC && s.OffsetBmp == o.OffsetBmp && s.Offsets == o.Offsets
}

// Entries lists the tracked offsets of s under cfg, in process order.
func (s Snapshot) Entries(cfg Config) []Entry {
	t := table{bmp: s.OffsetBmp, offsets: s.Offsets, width: BitsPerOffset(cfg.Epsilon), epsilon: cfg.Epsilon}
	return t.entries()
}

// Validate checks s against the invariants of cfg: the process id and
// bitmap are within ProcCount, every live offset is below epsilon, and the
// packed word holds nothing above the live slots.
func (s Snapshot) Validate(cfg Config) error {
	if s.ProcID < 0 || s.ProcID >= cfg.ProcCount {
		return snapshotError("process id %d out of range [0, %d)", s.ProcID, cfg.ProcCount)
	}
	if s.OffsetBmp&^bitfield.Mask(uint(cfg.ProcCount)) != 0 {
		return snapshotError("bitmap %#x addresses processes beyond %d", s.OffsetBmp, cfg.ProcCount)
	}

	width := BitsPerOffset(cfg.Epsilon)
	live := uint(bitfield.Rank(s.OffsetBmp, bitfield.WordBits))
	if s.Offsets&^bitfield.Mask(live*width) != 0 {
		return snapshotError("offsets %#x has data above %d live slots", s.Offsets, live)
	}
	for _, e := range s.Entries(cfg) {
		if e.Offset >= cfg.Epsilon {
			return snapshotError("offset %d of process %d not below epsilon %d", e.Offset, e.ProcID, cfg.Epsilon)
		}
	}
	return nil
}

// String renders s with each word as 64 binary digits.
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "RepCl(\n")
	fmt.Fprintf(&b, "\tproc_id:\t%d,\n", s.ProcID)
	fmt.Fprintf(&b, "\thlc:\t\t%d,\n", s.HLC)
	fmt.Fprintf(&b, "\toffset_bmp:\t%064b,\n", s.OffsetBmp)
	fmt.Fprintf(&b, "\toffsets:\t%064b,\n", s.Offsets)
	fmt.Fprintf(&b, "\tcounters:\t%064b\n", s.Counters)
	b.WriteString(")")
	return b.String()
}

// Compare orders snapshots by hlc, then counters, then process id.
// It is a total order for log output; it does not decide causality.
func Compare(a, b Snapshot) int {
	if c := cmp.Compare(a.HLC, b.HLC); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Counters, b.Counters); c != 0 {
		return c
	}
	return cmp.Compare(a.ProcID, b.ProcID)
}
