// Package repcl implements a replay clock: a hybrid logical clock that
// tracks causality across a fixed set of processes in one fixed-size record.
//
// A Clock carries four words:
//
//	hlc        the current epoch (coarse wall-clock time)
//	offsetBmp  bit p set = process p has a recorded offset
//	offsets    packed offsets, one ceil(log2(epsilon))-bit slot per live process
//	counters   tie-break sequence number within an epoch
//
// The offset of process p is the number of epochs between this clock's hlc
// and the last epoch at which p is known to have contributed. Offsets are
// stored densely: p's slot is the rank of bit p in offsetBmp (the count of
// live processes below p), so the packed table only needs room for
// processCount slots and never grows with history. Offsets that reach
// epsilon are evicted and their slot compacted away.
//
// OPERATIONS:
//
// Tick records a local event (a send). Merge records receipt of another
// clock's Snapshot. Shift advances the epoch without recording an event.
// All three leave every invariant intact on every exit path:
//   - each live slot holds a value below epsilon
//   - slots at ranks >= popcount(offsetBmp) are zero
//   - hlc never decreases
//
// The offset/bitmap/epoch part of Merge is a join of aged offset sets. The
// counter is deliberately history-sensitive and is not commutative.
//
// A Clock is owned by one process and is not safe for concurrent use. Share
// state with peers by sending Snapshot values.
package repcl
