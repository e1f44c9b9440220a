package body

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/tle"
	"github.com/star/starcalc/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go (no CGO), explicit TEME output, includes ECIToECEF for
// cross-validation.
//
// Note: Propagate() takes Satellite by value so SGP4 error codes are not visible
// to the caller. We detect propagation failures by checking output for NaN/Inf
// and unreasonable position magnitudes. It also only accepts whole seconds,
// so instants are rounded to the nearest second.

// Satellite is an Earth-orbiting body propagated with SGP4 from a TLE.
type Satellite struct {
	name    string
	noradID int
	sat     satellite.Satellite
}

// NewSatellite initializes SGP4 for e. Returns an error if the TLE cannot be
// parsed or the SGP4 model fails to initialize.
//
// Pre-validates TLE format before passing to the library, because go-satellite
// calls log.Fatal on malformed input (which would kill the process).
func NewSatellite(e tle.Entry) (*Satellite, error) {
	if err := tle.ValidateLines(e.Line1, e.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", e.NORADID, err)
	}

	sat := satellite.TLEToSat(e.Line1, e.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", e.NORADID, sat.Error, sat.ErrorStr)
	}

	name := e.Name
	if name == "" {
		name = fmt.Sprintf("%d", e.NORADID)
	}
	return &Satellite{name: name, noradID: e.NORADID, sat: sat}, nil
}

func (s *Satellite) Name() string { return s.name }

// NORADID returns the catalog number.
func (s *Satellite) NORADID() int { return s.noradID }

// StateAt returns the TEME position and velocity (km, km/s) at jd.
func (s *Satellite) StateAt(jd timesys.JulianDate) (transform.PositionTEME, error) {
	if err := checkJD(jd); err != nil {
		return transform.PositionTEME{}, err
	}
	t := jd.Time().Round(time.Second)
	pos, vel := satellite.Propagate(s.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", s.noradID)
	}

	// Sanity check: position magnitude should be between ~6200km and ~50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", s.noradID, mag)
	}

	return transform.PositionTEME{
		X:  pos.X,
		Y:  pos.Y,
		Z:  pos.Z,
		VX: vel.X,
		VY: vel.Y,
		VZ: vel.Z,
	}, nil
}

// PositionAt returns the geocentric direction of the satellite in the TEME
// frame. Horizontal coordinates need the observer's position; see LookAnglesAt.
func (s *Satellite) PositionAt(jd timesys.JulianDate) (transform.EquatorialCoordinate, error) {
	teme, err := s.StateAt(jd)
	if err != nil {
		return transform.EquatorialCoordinate{}, err
	}
	return transform.TEMEToEquatorial(teme), nil
}

// ECEFAt returns the body-fixed state at jd.
func (s *Satellite) ECEFAt(jd timesys.JulianDate) (transform.PositionECEF, error) {
	teme, err := s.StateAt(jd)
	if err != nil {
		return transform.PositionECEF{}, err
	}
	return transform.TEMEToECEF(teme, jd), nil
}

// LookAnglesAt returns azimuth, elevation and range from obs at jd.
func (s *Satellite) LookAnglesAt(obs geodesy.GeodeticCoordinate, jd timesys.JulianDate) (transform.LookAngles, error) {
	if err := obs.Validate(); err != nil {
		return transform.LookAngles{}, err
	}
	ecef, err := s.ECEFAt(jd)
	if err != nil {
		return transform.LookAngles{}, err
	}
	return transform.ECEFToLookAngles(obs, ecef.Position()), nil
}
