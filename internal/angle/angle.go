// Package angle holds the radian helpers shared by the engine packages.
//
// All engine math runs in radians. Degrees and hours appear only at the
// API and CLI boundary, through the conversion helpers below.
package angle

import "math"

const (
	// TwoPi is one full turn in radians.
	TwoPi = 2 * math.Pi

	degPerRad  = 180.0 / math.Pi
	hourPerRad = 12.0 / math.Pi
)

// Normalize reduces a to the interval [0, 2π).
func Normalize(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	// a tiny negative remainder can round up to exactly 2π
	if a >= TwoPi {
		a = 0
	}
	return a
}

// NormalizeSigned reduces a to the interval (−π, π].
func NormalizeSigned(a float64) float64 {
	a = Normalize(a)
	if a > math.Pi {
		a -= TwoPi
	}
	return a
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * degPerRad }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg / degPerRad }

// Hours converts radians to hours of right ascension.
func Hours(rad float64) float64 { return rad * hourPerRad }

// FromHours converts hours of right ascension to radians.
func FromHours(h float64) float64 { return h / hourPerRad }

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
