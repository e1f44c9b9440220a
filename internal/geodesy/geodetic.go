package geodesy

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCoordinate is returned for geodetic coordinates outside their ranges.
var ErrInvalidCoordinate = errors.New("invalid geodetic coordinate")

// GeodeticCoordinate is a position relative to a reference ellipsoid.
// Latitude and longitude are in radians, longitude positive east.
type GeodeticCoordinate struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Elevation float64   `json:"elevation"` // meters above the ellipsoid
	Ellipsoid Ellipsoid `json:"ellipsoid"`
}

// ECEF is a body-fixed Cartesian position in meters.
type ECEF struct {
	X, Y, Z float64
}

// Norm returns the distance from the body center.
func (p ECEF) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// NewGeodetic validates and builds a coordinate on ellipsoid e.
func NewGeodetic(lat, lon, elevation float64, e Ellipsoid) (GeodeticCoordinate, error) {
	g := GeodeticCoordinate{Lat: lat, Lon: lon, Elevation: elevation, Ellipsoid: e}
	if err := g.Validate(); err != nil {
		return GeodeticCoordinate{}, err
	}
	return g, nil
}

// Validate checks the latitude, longitude and elevation ranges and that the
// ellipsoid has been derived.
func (g GeodeticCoordinate) Validate() error {
	if !finite(g.Lat) || g.Lat < -math.Pi/2 || g.Lat > math.Pi/2 {
		return fmt.Errorf("%w: latitude %v outside [-π/2, π/2]", ErrInvalidCoordinate, g.Lat)
	}
	if !finite(g.Lon) || g.Lon < -math.Pi || g.Lon > math.Pi {
		return fmt.Errorf("%w: longitude %v outside [-π, π]", ErrInvalidCoordinate, g.Lon)
	}
	if !finite(g.Elevation) {
		return fmt.Errorf("%w: elevation %v", ErrInvalidCoordinate, g.Elevation)
	}
	if g.Ellipsoid.A <= 0 || g.Ellipsoid.B <= 0 {
		return fmt.Errorf("%w: ellipsoid not derived", ErrInvalidEllipsoid)
	}
	return nil
}

// ECEF converts the coordinate to body-fixed Cartesian meters.
func (g GeodeticCoordinate) ECEF() ECEF {
	sinLat := math.Sin(g.Lat)
	cosLat := math.Cos(g.Lat)
	sinLon := math.Sin(g.Lon)
	cosLon := math.Cos(g.Lon)

	// Radius of curvature in the prime vertical.
	n := g.Ellipsoid.PrimeVerticalRadius(g.Lat)

	return ECEF{
		X: (n + g.Elevation) * cosLat * cosLon,
		Y: (n + g.Elevation) * cosLat * sinLon,
		Z: (n*(1-g.Ellipsoid.E2) + g.Elevation) * sinLat,
	}
}

// Geodetic converts a body-fixed position to geodetic coordinates on e
// using the iterative Bowring method. Converges in 2-3 iterations for
// points near the surface or in low orbit.
func (e Ellipsoid) Geodetic(p ECEF) GeodeticCoordinate {
	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)

	// Initial estimate using Bowring's method.
	lat := math.Atan2(p.Z, rho*(1-e.E2))
	for i := 0; i < 5; i++ {
		n := e.PrimeVerticalRadius(lat)
		lat = math.Atan2(p.Z+e.E2*n*math.Sin(lat), rho)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := e.PrimeVerticalRadius(lat)

	var elev float64
	if math.Abs(cosLat) > 1e-10 {
		elev = rho/cosLat - n
	} else {
		elev = math.Abs(p.Z)/math.Abs(sinLat) - n*(1-e.E2)
	}

	return GeodeticCoordinate{Lat: lat, Lon: lon, Elevation: elev, Ellipsoid: e}
}
