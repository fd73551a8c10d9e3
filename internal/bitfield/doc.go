// Package bitfield implements fixed-width unsigned fields packed into a
// single 64-bit word, and the bitmap-rank addressing used to index them.
//
// A packed word is treated as a dense array of width-bit slots starting at
// bit 0. Slot i occupies bits [i*width, (i+1)*width). All operations work on
// uint64 values and express every shift and mask against the field width,
// so there is no sign extension and no dependency on the platform int size.
//
// Sparse per-process data is stored densely by combining a membership
// bitmap with the packed word: the slot of process p is Rank(bitmap, p),
// the number of set bits strictly below p. Whenever membership changes the
// ranks of all higher processes move by one, which is why InsertField and
// RemoveField shift the slots above the affected index.
package bitfield
