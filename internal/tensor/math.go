package tensor

import "math"

// Log returns the natural logarithm of x, computed in float64 and rounded
// to T so every kernel produces the same bits.
func Log[T Float](x T) T {
	return T(math.Log(float64(x)))
}

// Exp returns e**x, computed in float64 and rounded to T.
func Exp[T Float](x T) T {
	return T(math.Exp(float64(x)))
}

// Index converts a floating-point entry to an integer index in [0, n).
// The value is floored; NaN, infinities and values outside the range
// report false.
func Index[T Float](x T, n int) (int, bool) {
	f := math.Floor(float64(x))
	if !(f >= 0 && f < float64(n)) {
		return 0, false
	}
	return int(f), true
}
