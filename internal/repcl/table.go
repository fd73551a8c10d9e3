package repcl

import "github.com/roach88/repcl/internal/bitfield"

// Entry is one tracked offset.
type Entry struct {
	ProcID int    `json:"proc_id"`
	Offset uint64 `json:"offset"`
}

// table is the packed offset table addressed through its bitmap.
type table struct {
	bmp     uint64
	offsets uint64
	width   uint
	epsilon uint64
}

// lookup returns the offset of pid and whether pid is live.
func (t *table) lookup(pid int) (uint64, bool) {
	if !bitfield.Has(t.bmp, pid) {
		return 0, false
	}
	return bitfield.Get(t.offsets, t.width, bitfield.Rank(t.bmp, pid)), true
}

// put stores value for pid and marks it live. A pid that was not live gets
// a new slot at its rank; the slots above it move up.
func (t *table) put(pid int, value uint64) {
	rank := bitfield.Rank(t.bmp, pid)
	if bitfield.Has(t.bmp, pid) {
		t.offsets = mustFit(bitfield.Set(t.offsets, t.width, rank, value))
		return
	}
	t.offsets = mustFit(bitfield.InsertField(t.offsets, t.width, rank, value))
	t.bmp |= bitfield.Bit(pid)
}

// age adds elapsed epochs to every live offset, evicting those that reach
// epsilon. Live processes are visited in ascending rank order against the
// bitmap as mutated so far: after an eviction the table is compacted, so
// the next live process is read at the same rank.
func (t *table) age(elapsed uint64) {
	rank := 0
	for pid := range bitfield.Positions(t.bmp) {
		aged := agedOffset(bitfield.Get(t.offsets, t.width, rank), elapsed, t.epsilon)
		if aged >= t.epsilon {
			t.offsets = bitfield.RemoveField(t.offsets, t.width, rank)
			t.bmp &^= bitfield.Bit(pid)
			continue
		}
		t.offsets = mustFit(bitfield.Set(t.offsets, t.width, rank, aged))
		rank++
	}
}

// join returns the per-process minimum of t and o. A process live on one
// side only keeps that side's offset. Offsets at or above epsilon are
// dropped.
func (t *table) join(o *table) table {
	out := table{width: t.width, epsilon: t.epsilon}
	rank := 0
	for pid := range bitfield.Positions(t.bmp | o.bmp) {
		mine, inMine := t.lookup(pid)
		theirs, inTheirs := o.lookup(pid)

		var v uint64
		switch {
		case inMine && inTheirs:
			v = min(mine, theirs)
		case inMine:
			v = mine
		default:
			v = theirs
		}
		if v >= t.epsilon {
			continue
		}

		out.offsets = mustFit(bitfield.Set(out.offsets, out.width, rank, v))
		out.bmp |= bitfield.Bit(pid)
		rank++
	}
	return out
}

// entries lists the live offsets in ascending process order.
func (t *table) entries() []Entry {
	out := make([]Entry, 0, bitfield.Rank(t.bmp, bitfield.WordBits))
	rank := 0
	for pid := range bitfield.Positions(t.bmp) {
		out = append(out, Entry{ProcID: pid, Offset: bitfield.Get(t.offsets, t.width, rank)})
		rank++
	}
	return out
}

// agedOffset returns min(offset + elapsed, epsilon) without overflowing.
func agedOffset(offset, elapsed, epsilon uint64) uint64 {
	if offset >= epsilon || elapsed >= epsilon-offset {
		return epsilon
	}
	return offset + elapsed
}
