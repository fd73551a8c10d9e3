package bitfield

import "fmt"

// WordBits is the width of a packed word.
const WordBits = 64

// ValueTooLargeError is returned when a value does not fit in its field.
type ValueTooLargeError struct {
	Value uint64
	Width uint
}

func (e *ValueTooLargeError) Error() string {
	return fmt.Sprintf("value %d does not fit in a %d-bit field", e.Value, e.Width)
}

// Mask returns a word with the low width bits set.
// Widths of 64 or more yield an all-ones word.
func Mask(width uint) uint64 {
	return ^(^uint64(0) << width)
}

// Extract returns the width-bit field of word starting at bit offset.
func Extract(word uint64, width, offset uint) uint64 {
	return (word >> offset) & Mask(width)
}

// SetField clears the width-bit field at offset and writes value into it.
func SetField(word uint64, width, offset uint, value uint64) (uint64, error) {
	if value > Mask(width) {
		return word, &ValueTooLargeError{Value: value, Width: width}
	}
	word &^= Mask(width) << offset
	return word | value<<offset, nil
}

// Get returns the slot at packed position index.
func Get(word uint64, width uint, index int) uint64 {
	return Extract(word, width, uint(index)*width)
}

// Set writes value into the slot at packed position index.
func Set(word uint64, width uint, index int, value uint64) (uint64, error) {
	return SetField(word, width, uint(index)*width, value)
}

// RemoveField deletes the slot at packed position index and moves every
// higher slot down by one. The vacated top slot reads as zero.
func RemoveField(word uint64, width uint, index int) uint64 {
	at := uint(index) * width
	low := word & Mask(at)
	high := (word >> (at + width)) << at
	return low | high
}

// InsertField moves every slot at or above index up by one and writes value
// at index. Bits pushed past the top of the word are lost; callers keep the
// number of live slots within capacity.
func InsertField(word uint64, width uint, index int, value uint64) (uint64, error) {
	if value > Mask(width) {
		return word, &ValueTooLargeError{Value: value, Width: width}
	}
	at := uint(index) * width
	low := word & Mask(at)
	high := (word >> at) << (at + width)
	return low | high | value<<at, nil
}
