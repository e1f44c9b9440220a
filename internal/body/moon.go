package body

import (
	"math"

	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/transform"
)

// Moon is a low-precision lunar model built from the mean orbital elements
// and the largest periodic terms in longitude and latitude. Accurate to
// about 0.1° near J2000. Parallax is not applied, so positions are geocentric.
type Moon struct{}

func (Moon) Name() string { return "moon" }

// lunarElements are the fundamental arguments in radians.
type lunarElements struct {
	l  float64 // mean longitude
	m  float64 // Sun's mean anomaly
	f  float64 // argument of latitude
	mp float64 // Moon's mean anomaly
	d  float64 // mean elongation
}

func elementsAt(t float64) lunarElements {
	return lunarElements{
		l:  3.8104 + 8399.7091*t,
		m:  6.2300 + 628.3019*t,
		f:  1.6280 + 8433.4663*t,
		mp: 2.3554 + 8328.6911*t,
		d:  5.1985 + 7771.3772*t,
	}
}

// Ecliptic returns the Moon's ecliptic longitude and latitude in radians.
func (Moon) Ecliptic(jd timesys.JulianDate) (lambda, beta float64) {
	e := elementsAt(jd.Centuries())
	l, m, f, mp, d := e.l, e.m, e.f, e.mp, e.d

	lambda = l +
		0.1098*math.Sin(mp) +
		0.0222*math.Sin(2*d-mp) +
		0.0115*math.Sin(2*d) +
		0.0037*math.Sin(2*mp) -
		0.0032*math.Sin(m) -
		0.0020*math.Sin(2*f) +
		0.0010*math.Sin(2*d-2*mp) +
		0.0010*math.Sin(2*d-m-mp) +
		0.0009*math.Sin(2*d+mp) +
		0.0008*math.Sin(2*d-m) +
		0.0007*math.Sin(mp-m) -
		0.0006*math.Sin(d) -
		0.0005*math.Sin(m+mp)

	beta = 0.0895*math.Sin(f) +
		0.0049*math.Sin(mp+f) +
		0.0048*math.Sin(mp-f) +
		0.0030*math.Sin(2*d-f) +
		0.0010*math.Sin(2*d+f-mp) +
		0.0008*math.Sin(2*d-f-mp) +
		0.0006*math.Sin(2*d+f)

	return lambda, beta
}

func (mo Moon) PositionAt(jd timesys.JulianDate) (transform.EquatorialCoordinate, error) {
	if err := checkJD(jd); err != nil {
		return transform.EquatorialCoordinate{}, err
	}
	lambda, beta := mo.Ecliptic(jd)
	return eclipticToEquatorial(lambda, beta, meanObliquity(jd.Centuries())), nil
}
