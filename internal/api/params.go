package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/catalog"
	"github.com/star/starcalc/internal/ephemeris"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/httputil"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/transform"
)

// paramError is a malformed or out-of-range query parameter.
type paramError struct {
	name  string
	value string
	why   string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.name, e.value, e.why)
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &paramError{name, v, "must be a finite number"}
	}
	return f, nil
}

func intParam(q url.Values, name string, def, lo, hi int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, &paramError{name, v, fmt.Sprintf("must be an integer in [%d, %d]", lo, hi)}
	}
	return n, nil
}

// timeParam parses an RFC 3339 instant and converts it to UTC.
func timeParam(q url.Values, name string, def time.Time) (time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return def.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, &paramError{name, v, "must be an RFC 3339 timestamp"}
	}
	return t.UTC(), nil
}

// secondsParam parses a whole number of seconds.
func secondsParam(q url.Values, name string, def time.Duration, min int) (time.Duration, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, &paramError{name, v, fmt.Sprintf("must be an integer number of seconds >= %d", min)}
	}
	return time.Duration(n) * time.Second, nil
}

// observerParam reads lat, lon (degrees), elev (meters) and ellipsoid,
// falling back to def for anything omitted.
func observerParam(q url.Values, def geodesy.GeodeticCoordinate) (geodesy.GeodeticCoordinate, error) {
	lat, err := floatParam(q, "lat", angle.Degrees(def.Lat))
	if err != nil {
		return geodesy.GeodeticCoordinate{}, err
	}
	lon, err := floatParam(q, "lon", angle.Degrees(def.Lon))
	if err != nil {
		return geodesy.GeodeticCoordinate{}, err
	}
	elev, err := floatParam(q, "elev", def.Elevation)
	if err != nil {
		return geodesy.GeodeticCoordinate{}, err
	}

	e := def.Ellipsoid
	if name := q.Get("ellipsoid"); name != "" {
		var ok bool
		if e, ok = geodesy.LookupEllipsoid(name); !ok {
			return geodesy.GeodeticCoordinate{}, &paramError{"ellipsoid", name, "unknown ellipsoid"}
		}
	}
	if e.A == 0 {
		e = geodesy.WGS84
	}
	return geodesy.NewGeodetic(angle.Radians(lat), angle.Radians(lon), elev, e)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.Is(err, body.ErrUnknownBody), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, timesys.ErrInvalidDate),
		errors.Is(err, timesys.ErrOutOfRangeEpoch),
		errors.Is(err, geodesy.ErrInvalidCoordinate),
		errors.Is(err, geodesy.ErrInvalidEllipsoid),
		errors.Is(err, transform.ErrNumericDomain),
		errors.Is(err, transform.ErrUnsupportedEpoch),
		errors.Is(err, ephemeris.ErrInvalidConfig):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeErr writes err with its mapped status. Internal errors are logged
// and not echoed to the client.
func writeErr(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "error", err)
		httputil.WriteError(w, status, "internal error")
		return
	}
	httputil.WriteError(w, status, err.Error())
}
