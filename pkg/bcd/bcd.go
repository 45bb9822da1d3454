// Package bcd converts between integers and their binary-coded decimal
// packing, in which every hexadecimal nibble holds one decimal digit.
//
// Scalars and slices share one implementation, so a value decodes the same
// way whether it arrives alone or as an element of a batch.
package bcd

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Error represents a BCD conversion error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrInvalidEncoding is returned when a nibble holds a value above 9.
var ErrInvalidEncoding = &Error{"invalid BCD encoded value"}

// EncodingError reports the raw value that failed to decode. Index is the
// position of the first offending element for batch decodes and -1 for
// scalars.
type EncodingError struct {
	Value uint64
	Index int
}

func (e *EncodingError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s at index %d: %d=%#x", ErrInvalidEncoding, e.Index, e.Value, e.Value)
	}
	return fmt.Sprintf("%s %d=%#x", ErrInvalidEncoding, e.Value, e.Value)
}

func (e *EncodingError) Unwrap() error {
	return ErrInvalidEncoding
}

// Decode reads the nibbles of value as decimal digits.
func Decode[T constraints.Unsigned](value T) (T, error) {
	result, ok := decode(value)
	if !ok {
		return 0, &EncodingError{Value: uint64(value), Index: -1}
	}
	return result, nil
}

// DecodeSlice decodes every element of values. The error identifies the
// first element holding a non-decimal nibble.
func DecodeSlice[T constraints.Unsigned](values []T) ([]T, error) {
	out := make([]T, len(values))
	for i, v := range values {
		d, ok := decode(v)
		if !ok {
			return nil, &EncodingError{Value: uint64(v), Index: i}
		}
		out[i] = d
	}
	return out, nil
}

// Encode packs the decimal digits of value into successive nibbles.
// Digits that do not fit in T are lost; callers holding values near the
// width limit should check with Fits first.
func Encode[T constraints.Unsigned](value T) T {
	var result, shift T
	for value > 0 {
		result |= (value % 10) << shift
		value /= 10
		shift += 4
	}
	return result
}

// EncodeSlice encodes every element of values.
func EncodeSlice[T constraints.Unsigned](values []T) []T {
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = Encode(v)
	}
	return out
}

// Fits reports whether value can be BCD encoded in the given number of bits.
func Fits(value uint64, bits int) bool {
	digits := 0
	for v := value; v > 0; v /= 10 {
		digits++
	}
	return digits*4 <= bits
}

func decode[T constraints.Unsigned](value T) (T, bool) {
	var result T
	factor := T(1)
	for value > 0 {
		digit := value & 0xf
		if digit > 9 {
			return 0, false
		}
		result += digit * factor
		factor *= 10
		value >>= 4
	}
	return result, true
}
