// Package geodesy derives reference-ellipsoid parameters and converts
// geodetic coordinates to and from body-fixed Cartesian (ECEF) positions.
package geodesy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidEllipsoid is returned for non-positive, non-finite or inverted axes.
var ErrInvalidEllipsoid = errors.New("invalid ellipsoid")

// Ellipsoid is a reference ellipsoid of revolution. All values are derived
// from the two semi-axes; lengths are in meters.
type Ellipsoid struct {
	Name string  `json:"name"`
	A    float64 `json:"a"`   // equatorial radius
	B    float64 `json:"b"`   // polar radius
	F    float64 `json:"f"`   // flattening (a-b)/a
	R1   float64 `json:"r1"`  // mean radius (2a+b)/3
	A2   float64 `json:"a2"`  // a squared
	B2   float64 `json:"b2"`  // b squared
	E2   float64 `json:"e2"`  // first eccentricity squared
	E    float64 `json:"e"`   // first eccentricity
	EP2  float64 `json:"ep2"` // second eccentricity squared
	EP   float64 `json:"ep"`  // second eccentricity
}

// DeriveEllipsoid computes every derived parameter from the semi-major axis a
// and semi-minor axis b. A sphere (a == b) is valid.
func DeriveEllipsoid(a, b float64) (Ellipsoid, error) {
	if !finite(a) || !finite(b) || a <= 0 || b <= 0 {
		return Ellipsoid{}, fmt.Errorf("%w: axes must be positive and finite (a=%v, b=%v)", ErrInvalidEllipsoid, a, b)
	}
	if b > a {
		return Ellipsoid{}, fmt.Errorf("%w: polar radius %v exceeds equatorial radius %v", ErrInvalidEllipsoid, b, a)
	}

	a2 := a * a
	b2 := b * b
	e2 := 1 - b2/a2
	ep2 := a2/b2 - 1
	return Ellipsoid{
		A:   a,
		B:   b,
		F:   (a - b) / a,
		R1:  (2*a + b) / 3,
		A2:  a2,
		B2:  b2,
		E2:  e2,
		E:   math.Sqrt(e2),
		EP2: ep2,
		EP:  math.Sqrt(ep2),
	}, nil
}

// EllipsoidFromFlattening derives an ellipsoid from its equatorial radius and
// flattening, the form geodetic datums are usually published in.
func EllipsoidFromFlattening(a, f float64) (Ellipsoid, error) {
	if !finite(f) || f < 0 || f >= 1 {
		return Ellipsoid{}, fmt.Errorf("%w: flattening %v outside [0, 1)", ErrInvalidEllipsoid, f)
	}
	return DeriveEllipsoid(a, a-f*a)
}

// PrimeVerticalRadius returns N, the radius of curvature in the prime
// vertical at geodetic latitude lat (radians).
func (e Ellipsoid) PrimeVerticalRadius(lat float64) float64 {
	s := math.Sin(lat)
	return e.A / math.Sqrt(1-e.E2*s*s)
}

// MeridianRadius returns M, the radius of curvature in the meridian at lat.
func (e Ellipsoid) MeridianRadius(lat float64) float64 {
	s := math.Sin(lat)
	w := 1 - e.E2*s*s
	return e.A * (1 - e.E2) / (w * math.Sqrt(w))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Named reference ellipsoids.
var (
	// WGS84 is the World Geodetic System 1984 ellipsoid.
	WGS84 = mustNamed("WGS84", 6378137.0, 1.0/298.257223563)
	// Mars2015 is the IAU 2015 Mars reference ellipsoid.
	Mars2015 = mustNamed("Mars2015", 3396190.0, 1.0/169.894447223612)
)

var registry = map[string]Ellipsoid{
	strings.ToLower(WGS84.Name):    WGS84,
	strings.ToLower(Mars2015.Name): Mars2015,
}

func mustNamed(name string, a, f float64) Ellipsoid {
	e, err := EllipsoidFromFlattening(a, f)
	if err != nil {
		panic(err)
	}
	e.Name = name
	return e
}

// LookupEllipsoid returns a named ellipsoid, matching names case-insensitively.
func LookupEllipsoid(name string) (Ellipsoid, bool) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// EllipsoidNames lists the registered ellipsoid names in sorted order.
func EllipsoidNames() []string {
	names := make([]string, 0, len(registry))
	for _, e := range registry {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
