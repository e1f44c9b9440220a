// Package transform converts celestial coordinates between frames: equatorial
// right ascension/declination to an observer's horizontal azimuth/elevation
// and back, and satellite TEME states to body-fixed and topocentric frames.
//
// Equatorial coordinates are referenced to the J2000 equinox. Precession,
// nutation and refraction are not applied.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
)

// Epoch tags carried by EquatorialCoordinate.
const (
	EpochJ2000 = "2000"
	EpochTEME  = "TEME"
)

// domainTolerance is how far a sine or cosine may stray past ±1 from
// rounding before it is treated as an error instead of clamped.
const domainTolerance = 1e-9

var (
	// ErrNumericDomain is returned when an intermediate leaves the domain of
	// asin/acos by more than rounding error.
	ErrNumericDomain = errors.New("numeric domain error")
	// ErrUnsupportedEpoch is returned for equatorial coordinates that are not
	// referenced to J2000.
	ErrUnsupportedEpoch = errors.New("unsupported epoch")
)

// EquatorialCoordinate is a direction on the celestial sphere.
// RA is in [0, 2π), Dec in [−π/2, π/2], both radians.
type EquatorialCoordinate struct {
	RA    float64 `json:"ra"`
	Dec   float64 `json:"dec"`
	Epoch string  `json:"epoch"`
}

// HorizontalCoordinate is a direction in an observer's local frame.
// Azimuth is measured from North toward East in [0, 2π); elevation is in
// [−π/2, π/2].
type HorizontalCoordinate struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

func checkEpoch(epoch string) error {
	switch epoch {
	case "", EpochJ2000, "J2000":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedEpoch, epoch)
}

// clampUnit limits x to [−1, 1], failing when the excess exceeds rounding error.
func clampUnit(x float64, what string) (float64, error) {
	if math.IsNaN(x) || math.Abs(x) > 1+domainTolerance {
		return 0, fmt.Errorf("%w: %s = %v", ErrNumericDomain, what, x)
	}
	return angle.Clamp(x, -1, 1), nil
}

// HourAngle returns the local hour angle of ra at local sidereal time lst,
// in (−π, π]. Positive values lie west of the meridian.
func HourAngle(ra, lst float64) float64 {
	return angle.NormalizeSigned(lst - ra)
}

// EquatorialToHorizontal returns the azimuth and elevation of eq seen from
// the observer at jd.
func EquatorialToHorizontal(eq EquatorialCoordinate, obs geodesy.GeodeticCoordinate, jd timesys.JulianDate) (HorizontalCoordinate, error) {
	if err := jd.Validate(); err != nil {
		return HorizontalCoordinate{}, err
	}
	if err := checkEpoch(eq.Epoch); err != nil {
		return HorizontalCoordinate{}, err
	}
	if !finite(eq.RA) || !finite(eq.Dec) || math.Abs(eq.Dec) > math.Pi/2+domainTolerance {
		return HorizontalCoordinate{}, fmt.Errorf("%w: ra=%v dec=%v", ErrNumericDomain, eq.RA, eq.Dec)
	}
	if err := obs.Validate(); err != nil {
		return HorizontalCoordinate{}, err
	}

	lst := timesys.LocalSiderealTime(jd, obs.Lon)
	h := HourAngle(eq.RA, lst)

	sinDec, cosDec := math.Sincos(eq.Dec)
	sinLat, cosLat := math.Sincos(obs.Lat)
	sinH, cosH := math.Sincos(h)

	sinEl, err := clampUnit(sinDec*sinLat+cosDec*cosLat*cosH, "sin(elevation)")
	if err != nil {
		return HorizontalCoordinate{}, err
	}

	az := math.Atan2(-sinH*cosDec, cosLat*sinDec-sinLat*cosDec*cosH)
	return HorizontalCoordinate{
		Azimuth:   angle.Normalize(az),
		Elevation: math.Asin(sinEl),
	}, nil
}

// HorizontalToEquatorial is the inverse of EquatorialToHorizontal. At the
// zenith and at the poles the azimuth carries no information and the
// recovered right ascension is arbitrary but finite.
func HorizontalToEquatorial(hz HorizontalCoordinate, obs geodesy.GeodeticCoordinate, jd timesys.JulianDate) (EquatorialCoordinate, error) {
	if err := jd.Validate(); err != nil {
		return EquatorialCoordinate{}, err
	}
	if !finite(hz.Azimuth) || !finite(hz.Elevation) || math.Abs(hz.Elevation) > math.Pi/2+domainTolerance {
		return EquatorialCoordinate{}, fmt.Errorf("%w: az=%v el=%v", ErrNumericDomain, hz.Azimuth, hz.Elevation)
	}
	if err := obs.Validate(); err != nil {
		return EquatorialCoordinate{}, err
	}

	sinEl, cosEl := math.Sincos(hz.Elevation)
	sinLat, cosLat := math.Sincos(obs.Lat)
	sinAz, cosAz := math.Sincos(hz.Azimuth)

	sinDec, err := clampUnit(sinLat*sinEl+cosLat*cosEl*cosAz, "sin(declination)")
	if err != nil {
		return EquatorialCoordinate{}, err
	}

	h := math.Atan2(-sinAz*cosEl, cosLat*sinEl-sinLat*cosEl*cosAz)
	lst := timesys.LocalSiderealTime(jd, obs.Lon)
	return EquatorialCoordinate{
		RA:    angle.Normalize(lst - h),
		Dec:   math.Asin(sinDec),
		Epoch: EpochJ2000,
	}, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
