package math

import (
	m "math"

	"golang.org/x/exp/constraints"
)

const (
	/** @brief A tiny value used for float comparisons. */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief Multiplier converting degrees to radians. */
	K_DEG2RAD float32 = K_PI / 180.0
)

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

// Max returns the larger of the two values.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Min returns the smaller of the two values.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Abs32 returns the absolute value of a float32.
func Abs32(f float32) float32 {
	return float32(m.Abs(float64(f)))
}

// Sqrt32 returns the square root of a float32.
func Sqrt32(f float32) float32 {
	return float32(m.Sqrt(float64(f)))
}

// Compare reports whether two floats are within tolerance of each other.
func Compare(f0, f1, tolerance float32) bool {
	return Abs32(f0-f1) <= tolerance
}

// Vec3Compare reports whether two vectors are within tolerance per component.
func Vec3Compare(v0, v1 Vec3, tolerance float32) bool {
	return Compare(v0.X(), v1.X(), tolerance) &&
		Compare(v0.Y(), v1.Y(), tolerance) &&
		Compare(v0.Z(), v1.Z(), tolerance)
}
