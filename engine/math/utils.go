package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// AlignUp rounds v up to the next multiple of alignment. A zero alignment
// leaves v unchanged; any other alignment must be a power of two.
func AlignUp[T constraints.Unsigned](v, alignment T) T {
	if alignment == 0 {
		return v
	}
	return (v + alignment - 1) &^ (alignment - 1)
}

// CeilDiv returns ceil(a / b) for positive integers.
func CeilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

func DegToRad(degrees float32) float32 {
	return degrees * 3.14159265358979323846 / 180.0
}
