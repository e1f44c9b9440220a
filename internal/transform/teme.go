package transform

import (
	"math"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
)

// SGP4 outputs satellite states in TEME (True Equator Mean Equinox). The
// transform to ECEF is a simplified Vallado-style rotation using GMST only
// (TEME → PEF ≈ ECEF). Polar motion and the equation of the equinoxes are
// ignored, which introduces ~50m error at most.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.

// PositionTEME represents a satellite position and velocity in the TEME frame.
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// PositionECEF represents a satellite position and velocity in the ECEF frame.
type PositionECEF struct {
	X, Y, Z    float64 // meters
	VX, VY, VZ float64 // m/s
}

// Position drops the velocity.
func (p PositionECEF) Position() geodesy.ECEF {
	return geodesy.ECEF{X: p.X, Y: p.Y, Z: p.Z}
}

// TEMEToECEF transforms a TEME position/velocity to ECEF at jd.
// Input: TEME in km and km/s.
// Output: ECEF in meters and m/s.
func TEMEToECEF(teme PositionTEME, jd timesys.JulianDate) PositionECEF {
	return TEMEToECEFWithGMST(teme, timesys.GreenwichMeanSiderealTime(jd))
}

// TEMEToECEFWithGMST transforms TEME to ECEF using a precomputed GMST angle (radians).
//
// Position transform: r_ECEF = R3(θ) * r_TEME
// Velocity transform: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
//
// where R3(θ) is a rotation about the Z-axis by angle θ (GMST),
// and ω = [0, 0, ω_earth] is Earth's angular velocity vector.
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	sinG, cosG := math.Sincos(gmst)

	x := teme.X*cosG + teme.Y*sinG
	y := -teme.X*sinG + teme.Y*cosG
	z := teme.Z

	vx := teme.VX*cosG + teme.VY*sinG + timesys.OmegaEarth*y
	vy := -teme.VX*sinG + teme.VY*cosG - timesys.OmegaEarth*x
	vz := teme.VZ

	// km → m, km/s → m/s.
	return PositionECEF{
		X:  x * 1000.0,
		Y:  y * 1000.0,
		Z:  z * 1000.0,
		VX: vx * 1000.0,
		VY: vy * 1000.0,
		VZ: vz * 1000.0,
	}
}

// TEMEToEquatorial returns the geocentric right ascension and declination of
// a TEME position. The result is referenced to the true equator of date and
// tagged EpochTEME.
func TEMEToEquatorial(teme PositionTEME) EquatorialCoordinate {
	r := math.Sqrt(teme.X*teme.X + teme.Y*teme.Y + teme.Z*teme.Z)
	dec := 0.0
	if r > 0 {
		dec = math.Asin(angle.Clamp(teme.Z/r, -1, 1))
	}
	return EquatorialCoordinate{
		RA:    angle.Normalize(math.Atan2(teme.Y, teme.X)),
		Dec:   dec,
		Epoch: EpochTEME,
	}
}

// ValidateECEF checks that an ECEF position is physically reasonable for an
// Earth-orbiting satellite: finite, and between ~6200km and ~50000km from
// the geocenter.
func ValidateECEF(pos PositionECEF) bool {
	if !finite(pos.X) || !finite(pos.Y) || !finite(pos.Z) {
		return false
	}

	const minRadius = 6200.0 * 1000.0
	const maxRadius = 50000.0 * 1000.0

	mag := pos.Position().Norm()
	return mag >= minRadius && mag <= maxRadius
}
