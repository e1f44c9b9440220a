package transform

import (
	"math"
	"testing"

	"github.com/star/starcalc/internal/geodesy"
)

func site(latDeg, lonDeg, elev float64) geodesy.GeodeticCoordinate {
	return geodesy.GeodeticCoordinate{
		Lat:       latDeg * math.Pi / 180,
		Lon:       lonDeg * math.Pi / 180,
		Elevation: elev,
		Ellipsoid: geodesy.WGS84,
	}
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func TestECEFToLookAngles_DirectlyOverhead(t *testing.T) {
	// Observer at equator, prime meridian. Satellite directly above at 400km altitude.
	obs := site(0, 0, 0)
	target := obs.ECEF()
	target.X += 400000

	la := ECEFToLookAngles(obs, target)

	if math.Abs(degrees(la.Elevation)-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", degrees(la.Elevation))
	}
	if math.Abs(la.Range-400000) > 1000 {
		t.Errorf("overhead range = %.0f m, want ~400000", la.Range)
	}
}

func TestECEFToLookAngles_HorizonElevation(t *testing.T) {
	// A target 20 degrees east at 400km sits low in the eastern sky.
	obs := site(0, 0, 0)
	la := ECEFToLookAngles(obs, site(0, 20, 400000).ECEF())

	if el := degrees(la.Elevation); el < -5 || el > 45 {
		t.Errorf("near-horizon elevation = %.2f deg, expected between -5 and 45", el)
	}
}

func TestECEFToLookAngles_AzimuthDirections(t *testing.T) {
	obs := site(0, 0, 0)

	tests := []struct {
		name   string
		target geodesy.GeodeticCoordinate
		wantAz float64
	}{
		{"north", site(10, 0, 400000), 0},
		{"east", site(0, 10, 400000), 90},
		{"south", site(-10, 0, 400000), 180},
		{"west", site(0, -10, 400000), 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la := ECEFToLookAngles(obs, tt.target.ECEF())
			az := degrees(la.Azimuth)
			diff := math.Abs(az - tt.wantAz)
			if diff > 180 {
				diff = 360 - diff
			}
			if diff > 1 {
				t.Errorf("%s azimuth = %.2f deg, want near %.0f", tt.name, az, tt.wantAz)
			}
			if la.Azimuth < 0 || la.Azimuth >= 2*math.Pi {
				t.Errorf("azimuth %v outside [0, 2π)", la.Azimuth)
			}
		})
	}
}

func TestECEFToLookAngles_RangePositive(t *testing.T) {
	obs := site(40.7128, -74.006, 10) // NYC
	la := ECEFToLookAngles(obs, geodesy.ECEF{X: 6778000})
	if la.Range <= 0 {
		t.Errorf("range should be positive, got %.2f m", la.Range)
	}
}

func TestECEFToLookAngles_Mars(t *testing.T) {
	// Straight up from a site on the Mars ellipsoid.
	obs := geodesy.GeodeticCoordinate{Lat: 0.3, Lon: 1.2, Ellipsoid: geodesy.Mars2015}
	above := obs
	above.Elevation = 17000e3
	la := ECEFToLookAngles(obs, above.ECEF())
	if math.Abs(degrees(la.Elevation)-90) > 1e-6 {
		t.Errorf("elevation = %.8f deg, want 90", degrees(la.Elevation))
	}
}

func TestECEFToLookAngles_CoincidentTarget(t *testing.T) {
	obs := site(10, 10, 0)
	la := ECEFToLookAngles(obs, obs.ECEF())
	if la.Range != 0 || math.IsNaN(la.Azimuth) || math.IsNaN(la.Elevation) {
		t.Errorf("coincident target gave %+v", la)
	}
}
