// Package body computes the apparent positions of celestial bodies.
//
// Every body is an immutable value: PositionAt is a pure function of the
// Julian date, safe to call from any number of goroutines.
package body

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/transform"
)

// ErrUnknownBody is returned by Lookup for names that are not built in.
var ErrUnknownBody = errors.New("unknown body")

// Body is anything with a geocentric equatorial position at a given instant.
type Body interface {
	Name() string
	PositionAt(jd timesys.JulianDate) (transform.EquatorialCoordinate, error)
}

// Topocentric is implemented by bodies close enough that the observer's
// position on the ellipsoid matters, such as artificial satellites.
type Topocentric interface {
	Body
	LookAnglesAt(obs geodesy.GeodeticCoordinate, jd timesys.JulianDate) (transform.LookAngles, error)
}

// Observe returns the horizontal coordinates of b for obs at jd.
func Observe(b Body, obs geodesy.GeodeticCoordinate, jd timesys.JulianDate) (transform.HorizontalCoordinate, error) {
	if tb, ok := b.(Topocentric); ok {
		la, err := tb.LookAnglesAt(obs, jd)
		if err != nil {
			return transform.HorizontalCoordinate{}, err
		}
		return la.HorizontalCoordinate, nil
	}

	eq, err := b.PositionAt(jd)
	if err != nil {
		return transform.HorizontalCoordinate{}, err
	}
	return transform.EquatorialToHorizontal(eq, obs, jd)
}

var builtin = map[string]Body{
	"sun":  Sun{},
	"moon": Moon{},
}

// Lookup returns a built-in body by case-insensitive name.
func Lookup(name string) (Body, error) {
	b, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBody, name)
	}
	return b, nil
}

// Names lists the built-in bodies.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
