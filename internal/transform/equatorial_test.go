package transform

import (
	"errors"
	"math"
	"testing"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
)

// 2024-04-24T17:15:30Z
const testJD timesys.JulianDate = 2460425.219097222

func angDiff(a, b float64) float64 {
	return math.Abs(angle.NormalizeSigned(a - b))
}

func TestEquatorialToHorizontalGeometry(t *testing.T) {
	obs := site(52.2297, 21.0122, 100) // Warsaw
	lst := timesys.LocalSiderealTime(testJD, obs.Lon)

	tests := []struct {
		name   string
		eq     EquatorialCoordinate
		wantAz float64
		wantEl float64
	}{
		{
			name:   "zenith transit",
			eq:     EquatorialCoordinate{RA: lst, Dec: obs.Lat},
			wantEl: math.Pi / 2,
		},
		{
			name:   "celestial equator on the meridian",
			eq:     EquatorialCoordinate{RA: lst, Dec: 0},
			wantAz: math.Pi,
			wantEl: math.Pi/2 - obs.Lat,
		},
		{
			name:   "rising on the east point",
			eq:     EquatorialCoordinate{RA: angle.Normalize(lst + math.Pi/2), Dec: 0},
			wantAz: math.Pi / 2,
			wantEl: 0,
		},
		{
			name:   "setting on the west point",
			eq:     EquatorialCoordinate{RA: angle.Normalize(lst - math.Pi/2), Dec: 0, Epoch: "J2000"},
			wantAz: 3 * math.Pi / 2,
			wantEl: 0,
		},
		{
			name:   "north celestial pole",
			eq:     EquatorialCoordinate{RA: 1.0, Dec: math.Pi / 2, Epoch: EpochJ2000},
			wantAz: 0,
			wantEl: obs.Lat,
		},
		{
			name:   "lower culmination of a circumpolar star",
			eq:     EquatorialCoordinate{RA: angle.Normalize(lst + math.Pi), Dec: 80 * math.Pi / 180},
			wantAz: 0,
			wantEl: obs.Lat - 10*math.Pi/180,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hz, err := EquatorialToHorizontal(tt.eq, obs, testJD)
			if err != nil {
				t.Fatalf("EquatorialToHorizontal: %v", err)
			}
			if math.Abs(hz.Elevation-tt.wantEl) > 1e-9 {
				t.Errorf("elevation = %.12f, want %.12f", hz.Elevation, tt.wantEl)
			}
			// azimuth is undefined at the zenith
			if tt.wantEl < math.Pi/2-1e-6 && angDiff(hz.Azimuth, tt.wantAz) > 1e-9 {
				t.Errorf("azimuth = %.12f, want %.12f", hz.Azimuth, tt.wantAz)
			}
		})
	}
}

// TestEquatorialToHorizontalMatchesLookAngles places a star at a very large
// distance in the body-fixed frame and compares with the SEZ look angles.
func TestEquatorialToHorizontalMatchesLookAngles(t *testing.T) {
	observers := []geodesy.GeodeticCoordinate{
		site(40.7128, -74.006, 10),
		site(-33.8688, 151.2093, 50),
		site(78.2232, 15.6267, 0),
	}
	gmst := timesys.GreenwichMeanSiderealTime(testJD)

	for _, obs := range observers {
		for ra := 0.1; ra < 2*math.Pi; ra += 0.7 {
			for dec := -1.4; dec <= 1.4; dec += 0.35 {
				eq := EquatorialCoordinate{RA: ra, Dec: dec, Epoch: EpochJ2000}
				hz, err := EquatorialToHorizontal(eq, obs, testJD)
				if err != nil {
					t.Fatalf("EquatorialToHorizontal: %v", err)
				}

				const dist = 1e13 // km
				teme := PositionTEME{
					X: dist * math.Cos(dec) * math.Cos(ra),
					Y: dist * math.Cos(dec) * math.Sin(ra),
					Z: dist * math.Sin(dec),
				}
				la := ECEFToLookAngles(obs, TEMEToECEFWithGMST(teme, gmst).Position())

				if math.Abs(hz.Elevation-la.Elevation) > 1e-8 || angDiff(hz.Azimuth, la.Azimuth) > 1e-8 {
					t.Errorf("ra=%.2f dec=%.2f: got az/el (%.10f, %.10f), look angles (%.10f, %.10f)",
						ra, dec, hz.Azimuth, hz.Elevation, la.Azimuth, la.Elevation)
				}
			}
		}
	}
}

func TestHorizontalRanges(t *testing.T) {
	for lat := -89.0; lat <= 89; lat += 22.25 {
		obs := site(lat, 17, 0)
		for jd := testJD; jd < testJD+1; jd += 0.173 {
			for ra := 0.0; ra < 2*math.Pi; ra += 0.5 {
				for dec := -math.Pi / 2; dec <= math.Pi/2; dec += math.Pi / 8 {
					hz, err := EquatorialToHorizontal(EquatorialCoordinate{RA: ra, Dec: dec}, obs, jd)
					if err != nil {
						t.Fatalf("EquatorialToHorizontal: %v", err)
					}
					if hz.Azimuth < 0 || hz.Azimuth >= 2*math.Pi {
						t.Fatalf("azimuth %v outside [0, 2π)", hz.Azimuth)
					}
					if hz.Elevation < -math.Pi/2 || hz.Elevation > math.Pi/2 {
						t.Fatalf("elevation %v outside [-π/2, π/2]", hz.Elevation)
					}
				}
			}
		}
	}
}

func TestHorizontalToEquatorialInverse(t *testing.T) {
	observers := []geodesy.GeodeticCoordinate{
		site(0, 0, 0),
		site(52.2297, 21.0122, 100),
		site(-45, -120, 2000),
		{Lat: 0.3, Lon: 1.2, Ellipsoid: geodesy.Mars2015},
	}

	for _, obs := range observers {
		for ra := 0.05; ra < 2*math.Pi; ra += 0.45 {
			for dec := -1.45; dec <= 1.45; dec += 0.29 {
				eq := EquatorialCoordinate{RA: ra, Dec: dec, Epoch: EpochJ2000}
				hz, err := EquatorialToHorizontal(eq, obs, testJD)
				if err != nil {
					t.Fatalf("EquatorialToHorizontal: %v", err)
				}
				// right ascension is ill-conditioned near the zenith
				if math.Abs(hz.Elevation) > math.Pi/2-1e-3 {
					continue
				}

				back, err := HorizontalToEquatorial(hz, obs, testJD)
				if err != nil {
					t.Fatalf("HorizontalToEquatorial: %v", err)
				}
				if angDiff(back.RA, eq.RA) > 1e-9 || math.Abs(back.Dec-eq.Dec) > 1e-9 {
					t.Errorf("round trip (%.12f, %.12f) -> (%.12f, %.12f)", eq.RA, eq.Dec, back.RA, back.Dec)
				}
				if back.Epoch != EpochJ2000 {
					t.Errorf("epoch = %q", back.Epoch)
				}
			}
		}
	}
}

func TestHorizontalToEquatorialDegenerate(t *testing.T) {
	// The zenith and the pole are defined but carry no azimuth information.
	pole := site(90, 0, 0)
	for _, hz := range []HorizontalCoordinate{
		{Azimuth: 1.0, Elevation: math.Pi / 2},
		{Azimuth: 0, Elevation: 0.3},
	} {
		for _, obs := range []geodesy.GeodeticCoordinate{site(10, 10, 0), pole} {
			eq, err := HorizontalToEquatorial(hz, obs, testJD)
			if err != nil {
				t.Fatalf("HorizontalToEquatorial: %v", err)
			}
			if math.IsNaN(eq.RA) || math.IsNaN(eq.Dec) || eq.RA < 0 || eq.RA >= 2*math.Pi {
				t.Errorf("degenerate input %+v gave %+v", hz, eq)
			}
		}
	}
}

func TestTransformErrors(t *testing.T) {
	obs := site(10, 10, 0)

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"unsupported epoch", func() error {
			_, err := EquatorialToHorizontal(EquatorialCoordinate{RA: 1, Dec: 0, Epoch: "1950"}, obs, testJD)
			return err
		}, ErrUnsupportedEpoch},
		{"TEME epoch", func() error {
			_, err := EquatorialToHorizontal(EquatorialCoordinate{RA: 1, Dec: 0, Epoch: EpochTEME}, obs, testJD)
			return err
		}, ErrUnsupportedEpoch},
		{"NaN right ascension", func() error {
			_, err := EquatorialToHorizontal(EquatorialCoordinate{RA: math.NaN()}, obs, testJD)
			return err
		}, ErrNumericDomain},
		{"declination past the pole", func() error {
			_, err := EquatorialToHorizontal(EquatorialCoordinate{Dec: 2}, obs, testJD)
			return err
		}, ErrNumericDomain},
		{"elevation past the zenith", func() error {
			_, err := HorizontalToEquatorial(HorizontalCoordinate{Elevation: 2}, obs, testJD)
			return err
		}, ErrNumericDomain},
		{"NaN date", func() error {
			_, err := EquatorialToHorizontal(EquatorialCoordinate{RA: 1}, obs, timesys.JulianDate(math.NaN()))
			return err
		}, timesys.ErrOutOfRangeEpoch},
		{"infinite date", func() error {
			_, err := EquatorialToHorizontal(EquatorialCoordinate{RA: 1}, obs, timesys.JulianDate(math.Inf(1)))
			return err
		}, timesys.ErrOutOfRangeEpoch},
		{"NaN date inverse", func() error {
			_, err := HorizontalToEquatorial(HorizontalCoordinate{Elevation: 0.5}, obs, timesys.JulianDate(math.NaN()))
			return err
		}, timesys.ErrOutOfRangeEpoch},
		{"infinite date inverse", func() error {
			_, err := HorizontalToEquatorial(HorizontalCoordinate{Elevation: 0.5}, obs, timesys.JulianDate(math.Inf(-1)))
			return err
		}, timesys.ErrOutOfRangeEpoch},
		{"invalid observer", func() error {
			bad := obs
			bad.Lat = 3
			_, err := EquatorialToHorizontal(EquatorialCoordinate{RA: 1}, bad, testJD)
			return err
		}, geodesy.ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClampUnit(t *testing.T) {
	if v, err := clampUnit(1+5e-10, "x"); err != nil || v != 1 {
		t.Errorf("clampUnit(1+5e-10) = %v, %v; want 1, nil", v, err)
	}
	if v, err := clampUnit(-1-5e-10, "x"); err != nil || v != -1 {
		t.Errorf("clampUnit(-1-5e-10) = %v, %v; want -1, nil", v, err)
	}
	if _, err := clampUnit(1+1e-6, "x"); !errors.Is(err, ErrNumericDomain) {
		t.Errorf("clampUnit(1+1e-6) error = %v, want ErrNumericDomain", err)
	}
}

func TestHourAngle(t *testing.T) {
	if h := HourAngle(1, 1); h != 0 {
		t.Errorf("HourAngle on meridian = %v", h)
	}
	if h := HourAngle(0.1, 6.2); h > math.Pi || h <= -math.Pi {
		t.Errorf("HourAngle = %v outside (-π, π]", h)
	}
	if h := HourAngle(0, math.Pi); math.Abs(h-math.Pi) > 1e-15 {
		t.Errorf("HourAngle at anti-meridian = %v, want π", h)
	}
}
