package body

import (
	"fmt"
	"math"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/transform"
)

// FixedStar is a body with a constant J2000 position. Proper motion is ignored.
type FixedStar struct {
	Label string                         `json:"name"`
	Coord transform.EquatorialCoordinate `json:"coord"`
}

// NewFixedStar validates ra and dec (radians) and returns the star.
func NewFixedStar(name string, ra, dec float64) (FixedStar, error) {
	if math.IsNaN(ra) || math.IsInf(ra, 0) || math.IsNaN(dec) || dec < -math.Pi/2 || dec > math.Pi/2 {
		return FixedStar{}, fmt.Errorf("%w: star %q at ra=%v dec=%v", transform.ErrNumericDomain, name, ra, dec)
	}
	return FixedStar{
		Label: name,
		Coord: transform.EquatorialCoordinate{RA: angle.Normalize(ra), Dec: dec, Epoch: transform.EpochJ2000},
	}, nil
}

func (s FixedStar) Name() string { return s.Label }

func (s FixedStar) PositionAt(jd timesys.JulianDate) (transform.EquatorialCoordinate, error) {
	if err := checkJD(jd); err != nil {
		return transform.EquatorialCoordinate{}, err
	}
	return s.Coord, nil
}

func checkJD(jd timesys.JulianDate) error {
	return jd.Validate()
}
