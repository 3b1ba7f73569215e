package types

import (
	"errors"
	"math/bits"
)

// ErrOverflow indicates that a checked arithmetic operation produced a
// result that does not fit in uint64.
var ErrOverflow = errors.New("types: arithmetic overflow")

// MulDiv computes floor(a * num / den) using a 128-bit intermediate so
// the product may exceed 64 bits without losing precision. Division is
// truncating — results round down, never up.
//
// It panics if den is zero (a programming error: callers derive den from
// validated, strictly positive durations) and returns ErrOverflow when
// the quotient itself does not fit in uint64.
func MulDiv(a, num, den uint64) (uint64, error) {
	if den == 0 {
		panic("types: division by zero")
	}

	hi, lo := bits.Mul64(a, num)
	if hi >= den {
		return 0, ErrOverflow
	}

	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// CheckedAdd returns a + b, or ErrOverflow if the sum wraps.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedMul returns a * b, or ErrOverflow if the product wraps.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}
