package safemath

import (
	"errors"
	"math"
	"math/bits"

	"github.com/ryanavella/wide"
)

var ErrIntegerOverflow = errors.New("integer overflow")

func CheckedAddU64(a uint64, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrIntegerOverflow
	}
	return sum, nil
}

func CheckedSubU64(a uint64, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrIntegerOverflow
	}
	return diff, nil
}

func CheckedMulU64(a uint64, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrIntegerOverflow
	}
	return lo, nil
}

func SaturatingAddU64(a uint64, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func SaturatingSubU64(a uint64, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func SaturatingMulU64(a uint64, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func SaturatingMulU32(a uint32, b uint32) uint32 {
	product := uint64(a) * uint64(b)
	if product > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(product)
}

// MulU64ToU128 widens before multiplying, so the product of two u64 values cannot overflow.
func MulU64ToU128(a uint64, b uint64) wide.Uint128 {
	return wide.Uint128FromUint64(a).Mul(wide.Uint128FromUint64(b))
}

// F64ToU64Saturating converts like a Rust `as u64` cast: NaN and negatives become 0,
// values past the range clamp to MaxUint64, fractions truncate toward zero.
func F64ToU64Saturating(f float64) uint64 {
	if f != f || f <= 0 {
		return 0
	}
	if f >= 18446744073709551615.0 {
		return math.MaxUint64
	}
	return uint64(f)
}
