package ephemeris

import (
	"errors"
	"fmt"
	"time"

	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/transform"
)

// ErrInvalidConfig is returned for non-positive steps or negative horizons.
var ErrInvalidConfig = errors.New("invalid ephemeris config")

// Row is one sample of a body's position. Angles are radians.
type Row struct {
	JD         timesys.JulianDate             `json:"jd"`
	Time       time.Time                      `json:"time"`
	Equatorial transform.EquatorialCoordinate `json:"equatorial"`
	Horizontal transform.HorizontalCoordinate `json:"horizontal"`
	Err        error                          `json:"-"`
}

// OK reports whether the sample was computed.
func (r Row) OK() bool { return r.Err == nil }

// Table holds the samples for one body and observer, ordered by time.
type Table struct {
	Body     string
	Observer geodesy.GeodeticCoordinate
	Start    time.Time
	Step     time.Duration
	Rows     []Row
	Failed   int
}

// Config holds ephemeris configuration loaded from environment variables.
type Config struct {
	Workers int           // Worker pool size (default: runtime.NumCPU())
	Step    time.Duration // Sample interval (default: 60s)
	Horizon time.Duration // Table span (default: 24h)
}

// Validate checks that Samples is well defined.
func (c Config) Validate() error {
	if c.Step <= 0 {
		return fmt.Errorf("%w: step %s must be positive", ErrInvalidConfig, c.Step)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("%w: horizon %s must not be negative", ErrInvalidConfig, c.Horizon)
	}
	return nil
}

// Samples is the number of rows a table spans, both ends included.
func (c Config) Samples() int {
	return int(c.Horizon/c.Step) + 1
}

// Instants returns the sample times starting at start.
func (c Config) Instants(start time.Time) []timesys.JulianDate {
	n := c.Samples()
	jd0 := timesys.JulianDateOf(start)
	jds := make([]timesys.JulianDate, n)
	for i := range jds {
		jds[i] = jd0.AddDuration(time.Duration(i) * c.Step)
	}
	return jds
}
