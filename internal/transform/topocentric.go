package transform

import (
	"math"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/geodesy"
)

// LookAngles holds azimuth, elevation and range from an observer to a target.
type LookAngles struct {
	HorizontalCoordinate
	Range float64 `json:"range"` // meters
}

// ECEFToLookAngles computes the look angles from obs to a target given in
// body-fixed meters on the observer's ellipsoid.
//
// Uses the SEZ (South-East-Zenith) topocentric rotation per Vallado Section 4.4.
// Azimuth: 0 = North, measured clockwise. Elevation: 0 = horizon.
func ECEFToLookAngles(obs geodesy.GeodeticCoordinate, target geodesy.ECEF) LookAngles {
	site := obs.ECEF()
	rx := target.X - site.X
	ry := target.Y - site.Y
	rz := target.Z - site.Z

	sinLat, cosLat := math.Sincos(obs.Lat)
	sinLon, cosLon := math.Sincos(obs.Lon)

	// Rotate ECEF range vector to SEZ.
	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return LookAngles{HorizontalCoordinate: HorizontalCoordinate{Elevation: math.Pi / 2}}
	}

	// In SEZ, North = -South, so az = atan2(east, -south).
	return LookAngles{
		HorizontalCoordinate: HorizontalCoordinate{
			Azimuth:   angle.Normalize(math.Atan2(east, -south)),
			Elevation: math.Asin(angle.Clamp(zenith/rng, -1, 1)),
		},
		Range: rng,
	}
}
