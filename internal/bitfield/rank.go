package bitfield

import (
	"iter"
	"math/bits"
)

// Rank returns the number of set bits in bitmap strictly below pos.
// For pos >= 64 it returns the full population count.
func Rank(bitmap uint64, pos int) int {
	if pos >= WordBits {
		return bits.OnesCount64(bitmap)
	}
	return bits.OnesCount64(bitmap & Mask(uint(pos)))
}

// Has reports whether bit pos is set.
func Has(bitmap uint64, pos int) bool {
	return bitmap&(uint64(1)<<uint(pos)) != 0
}

// Bit returns a word with only bit pos set.
func Bit(pos int) uint64 {
	return uint64(1) << uint(pos)
}

// Positions yields the set bit positions of bitmap in ascending order.
// The k-th position yielded has rank k.
func Positions(bitmap uint64) iter.Seq[int] {
	return func(yield func(int) bool) {
		for b := bitmap; b != 0; b &= b - 1 {
			if !yield(bits.TrailingZeros64(b)) {
				return
			}
		}
	}
}
