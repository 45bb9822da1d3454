// Package crc implements a cyclic redundancy check over raw bitstreams.
//
// A stream is a slice whose index runs over bit positions. A single stream
// uses one element per bit holding 0 or 1. Wider unsigned elements carry
// several streams side by side, one per bit lane, so a 64-track recording
// is checked in one pass over []uint64. The long division only XORs whole
// elements, which keeps the lanes independent.
package crc

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Lane is the element type of a bitstream.
type Lane interface {
	constraints.Unsigned
}

// CRC describes a divisor polynomial. The zero value is not usable.
type CRC struct {
	polynomial uint64
	bits       []uint8
}

// New returns a CRC for the given MSB-first polynomial, e.g. 0x18005 for
// x^16 + x^15 + x^2 + 1.
func New(polynomial uint64) CRC {
	n := bits.Len64(polynomial)
	pol := make([]uint8, n)
	for i := 0; i < n; i++ {
		pol[i] = uint8(polynomial >> (n - 1 - i) & 1)
	}
	return CRC{polynomial: polynomial, bits: pol}
}

// Polynomial returns the divisor.
func (c CRC) Polynomial() uint64 {
	return c.polynomial
}

// Len returns the check length, one less than the polynomial's bit length.
func (c CRC) Len() int {
	if len(c.bits) == 0 {
		return 0
	}
	return len(c.bits) - 1
}

// Compute returns the remainder of stream followed by Len zero bits.
// The input is not modified.
func Compute[T Lane](c CRC, stream []T) []T {
	scratch := make([]T, len(stream)+c.Len())
	copy(scratch, stream)
	return divide(c, scratch)
}

// Check reports whether stream, which ends in its CRC, divides cleanly.
// The input is not modified.
func Check[T Lane](c CRC, stream []T) bool {
	if len(stream) < c.Len() {
		return false
	}
	scratch := make([]T, len(stream))
	copy(scratch, stream)
	for _, v := range divide(c, scratch) {
		if v != 0 {
			return false
		}
	}
	return true
}

// divide runs the long division in place and returns the trailing window.
func divide[T Lane](c CRC, stream []T) []T {
	n := c.Len()
	mask := make([]T, len(c.bits))
	for i, b := range c.bits {
		// 0 - 1 wraps to all ones, selecting every lane.
		mask[i] = T(0) - T(b)
	}
	for i := 0; i < len(stream)-n; i++ {
		lead := stream[i]
		if lead == 0 {
			continue
		}
		for j, m := range mask {
			stream[i+j] ^= m & lead
		}
	}
	return stream[len(stream)-n:]
}

// Bits expands the lowest width bits of value into a single stream, most
// significant bit first.
func Bits(value uint64, width int) []uint8 {
	out := make([]uint8, width)
	for i := 0; i < width; i++ {
		out[i] = uint8(value >> (width - 1 - i) & 1)
	}
	return out
}

// FromBools converts a boolean stream into a single-lane stream.
func FromBools(stream []bool) []uint8 {
	out := make([]uint8, len(stream))
	for i, b := range stream {
		if b {
			out[i] = 1
		}
	}
	return out
}

// Value packs a single stream back into an integer, first element as the
// most significant bit.
func Value[T Lane](stream []T) uint64 {
	var v uint64
	for _, b := range stream {
		v = v<<1 | uint64(b&1)
	}
	return v
}
