package body

import (
	"math"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/transform"
)

// Sun is a low-precision solar model: mean anomaly plus a two-term equation
// of center on the mean ecliptic. Accurate to about 0.01° within a few
// centuries of J2000.
type Sun struct{}

func (Sun) Name() string { return "sun" }

// meanObliquity returns the obliquity of the ecliptic in radians at T
// Julian centuries from J2000.
func meanObliquity(t float64) float64 {
	return 0.409093 - 0.000227*t
}

// eclipticToEquatorial rotates ecliptic longitude lambda and latitude beta
// by the obliquity eps.
func eclipticToEquatorial(lambda, beta, eps float64) transform.EquatorialCoordinate {
	sinL, cosL := math.Sincos(lambda)
	sinB, cosB := math.Sincos(beta)
	sinE, cosE := math.Sincos(eps)

	ra := math.Atan2(sinL*cosE-(sinB/cosB)*sinE, cosL)
	dec := math.Asin(angle.Clamp(sinB*cosE+cosB*sinE*sinL, -1, 1))
	return transform.EquatorialCoordinate{
		RA:    angle.Normalize(ra),
		Dec:   dec,
		Epoch: transform.EpochJ2000,
	}
}

// EclipticLongitude returns the Sun's ecliptic longitude in radians.
func (Sun) EclipticLongitude(jd timesys.JulianDate) float64 {
	t := jd.Centuries()
	m := angle.Normalize(6.240041 + 628.302*t)
	return angle.Normalize(4.894968 + 628.331951*t +
		(0.033417-0.000084*t)*math.Sin(m) +
		0.000351*math.Sin(2*m))
}

func (s Sun) PositionAt(jd timesys.JulianDate) (transform.EquatorialCoordinate, error) {
	if err := checkJD(jd); err != nil {
		return transform.EquatorialCoordinate{}, err
	}
	return eclipticToEquatorial(s.EclipticLongitude(jd), 0, meanObliquity(jd.Centuries())), nil
}
