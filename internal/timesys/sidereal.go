package timesys

import (
	"math"

	"github.com/star/starcalc/internal/angle"
)

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// GreenwichMeanSiderealTime returns GMST in radians, in [0, 2π).
// Uses the IAU-82 model as described in Vallado "Fundamentals of Astrodynamics".
//
// Formula (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries from J2000.0 and the result is in seconds of time.
// UTC is used in place of UT1.
//
// jd must be finite; callers holding unchecked dates run jd.Validate first.
// The result for NaN or infinite input is NaN.
func GreenwichMeanSiderealTime(jd JulianDate) float64 {
	t := jd.Centuries()

	// 876600h = 3155760000 seconds.
	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*t +
		0.093104*t*t -
		6.2e-6*t*t*t

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return angle.Normalize(sec / 86400.0 * angle.TwoPi)
}

// LocalSiderealTime returns GMST advanced by the east-positive longitude lon
// (radians), in [0, 2π). The preconditions of GreenwichMeanSiderealTime apply,
// and lon must be finite.
func LocalSiderealTime(jd JulianDate, lon float64) float64 {
	return angle.Normalize(GreenwichMeanSiderealTime(jd) + lon)
}
