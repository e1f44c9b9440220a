package passes

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/tracing"
	"github.com/star/starcalc/internal/transform"
)

// ErrCancelled is recorded for bodies that never got a worker slot.
var ErrCancelled = errors.New("cancelled")

// GroundTrackPoint is a sub-satellite position at a specific time during a pass.
type GroundTrackPoint struct {
	Time      time.Time
	Point     geodesy.GeodeticCoordinate
	Elevation float64 // radians above the observer's horizon
}

// Event describes a single interval during which a body stays above the
// minimum elevation. Angles are radians.
type Event struct {
	Rise         time.Time
	Culmination  time.Time
	Set          time.Time
	MaxElevation float64
	AzimuthAtMax float64
	RiseAzimuth  float64
	SetAzimuth   float64
	RiseClipped  bool // already above at the start of the window
	SetClipped   bool // still above at the end of the window
	GroundTrack  []GroundTrackPoint
}

// Duration is the time between rise and set.
func (e Event) Duration() time.Duration { return e.Set.Sub(e.Rise) }

// BodyPasses holds the predicted passes for one body.
type BodyPasses struct {
	Body   string
	Passes []Event
	Err    error
}

// Request holds the parameters for a pass prediction request.
type Request struct {
	Observer     geodesy.GeodeticCoordinate
	Bodies       []body.Body
	Start        time.Time
	HorizonHours float64
	MinElevation float64 // radians
	MaxPasses    int     // per body; zero means DefaultMaxPasses
	Workers      int     // concurrent bodies; zero means runtime.NumCPU()
}

// DefaultMaxPasses bounds the passes returned per body.
const DefaultMaxPasses = 50

// scan holds the step sizes for one kind of body.
type scan struct {
	coarse      time.Duration
	fine        time.Duration
	groundTrack time.Duration
	minDuration time.Duration
}

// Satellites cross the sky in minutes; everything else takes hours.
var (
	fastScan = scan{coarse: 30 * time.Second, fine: time.Second, groundTrack: 10 * time.Second, minDuration: 10 * time.Second}
	slowScan = scan{coarse: 5 * time.Minute, fine: 15 * time.Second, minDuration: time.Minute}
)

func scanFor(b body.Body) scan {
	if _, ok := b.(body.Topocentric); ok {
		return fastScan
	}
	return slowScan
}

// ecefTracker is implemented by bodies whose sub-point can be computed.
type ecefTracker interface {
	ECEFAt(jd timesys.JulianDate) (transform.PositionECEF, error)
}

// Predict computes passes for every body in the request.
// Each body is processed in its own goroutine, bounded by a semaphore.
func Predict(ctx context.Context, req Request) ([]BodyPasses, error) {
	if err := req.Observer.Validate(); err != nil {
		return nil, err
	}
	if req.MaxPasses <= 0 {
		req.MaxPasses = DefaultMaxPasses
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]BodyPasses, len(req.Bodies))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, b := range req.Bodies {
		wg.Add(1)
		go func(idx int, b body.Body) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = BodyPasses{Body: b.Name(), Err: ErrCancelled}
				return
			}

			bctx, span := tracing.Start(ctx, "passes.Predict",
				attribute.String("body", b.Name()),
				attribute.Float64("horizon_hours", req.HorizonHours),
			)
			passes, err := predictBody(bctx, req, b)
			span.SetAttributes(attribute.Int("passes", len(passes)))
			tracing.End(span, err)
			results[idx] = BodyPasses{
				Body:   b.Name(),
				Passes: passes,
				Err:    err,
			}
		}(i, b)
	}

	wg.Wait()
	return results, nil
}

// predictBody finds all passes for a single body. It fails only when the
// body could not be observed at any coarse step.
func predictBody(ctx context.Context, req Request, b body.Body) ([]Event, error) {
	sc := scanFor(b)
	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))
	var (
		passes  []Event
		valid   int
		lastErr error
	)

	// Coarse scan: step through the time range looking for elevation above the minimum.
	t := req.Start
	for !t.After(end) && len(passes) < req.MaxPasses {
		if ctx.Err() != nil {
			return passes, nil
		}

		hz, err := body.Observe(b, req.Observer, timesys.JulianDateOf(t))
		if err != nil {
			lastErr = err
			t = t.Add(sc.coarse)
			continue
		}
		valid++
		if hz.Elevation < req.MinElevation {
			t = t.Add(sc.coarse)
			continue
		}

		// Found a candidate window; fine scan to find the full pass.
		pass, windowEnd := refinePass(ctx, b, req, sc, t, end)
		if pass != nil && (pass.Duration() >= sc.minDuration || pass.RiseClipped || pass.SetClipped) {
			passes = append(passes, *pass)
		}
		// Jump past the end of this window.
		t = windowEnd.Add(sc.coarse)
	}

	if valid == 0 && lastErr != nil {
		return nil, fmt.Errorf("%s: no valid positions in window: %w", b.Name(), lastErr)
	}
	return passes, nil
}

// refinePass does a fine-grained scan around a coarse-detected above-minimum region.
// It backs up to find the actual rise, then scans forward to find set.
// Returns the pass event and the time the window ends.
func refinePass(ctx context.Context, b body.Body, req Request, sc scan, coarseHit, windowEnd time.Time) (*Event, time.Time) {
	// Back up to find where elevation first crossed the minimum.
	searchStart := coarseHit.Add(-sc.coarse)
	if searchStart.Before(req.Start) {
		searchStart = req.Start
	}

	tracker, _ := b.(ecefTracker)

	var (
		ev        Event
		wasAbove  bool
		foundRise bool
		lastHz    transform.HorizontalCoordinate
	)

	t := searchStart
	for !t.After(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		jd := timesys.JulianDateOf(t)
		hz, err := body.Observe(b, req.Observer, jd)
		if err != nil {
			t = t.Add(sc.fine)
			continue
		}
		lastHz = hz

		above := hz.Elevation >= req.MinElevation

		if above && !wasAbove && !foundRise {
			// Rising.
			ev.Rise = t
			ev.RiseAzimuth = hz.Azimuth
			ev.RiseClipped = t.Equal(req.Start)
			ev.MaxElevation = hz.Elevation
			ev.Culmination = t
			ev.AzimuthAtMax = hz.Azimuth
			foundRise = true
		}

		if above && foundRise {
			if hz.Elevation > ev.MaxElevation {
				ev.MaxElevation = hz.Elevation
				ev.Culmination = t
				ev.AzimuthAtMax = hz.Azimuth
			}
			if tracker != nil && sc.groundTrack > 0 && t.Sub(ev.Rise)%sc.groundTrack == 0 {
				if p, err := tracker.ECEFAt(jd); err == nil {
					ev.GroundTrack = append(ev.GroundTrack, GroundTrackPoint{
						Time:      t,
						Point:     geodesy.WGS84.Geodetic(p.Position()),
						Elevation: hz.Elevation,
					})
				}
			}
		}

		if !above && wasAbove && foundRise {
			// Setting.
			ev.Set = t
			ev.SetAzimuth = hz.Azimuth
			return &ev, t
		}

		wasAbove = above
		t = t.Add(sc.fine)
	}

	if !foundRise || ctx.Err() != nil {
		return nil, t
	}

	// Still above at windowEnd: close the pass there.
	ev.Set = t
	if t.After(windowEnd) {
		ev.Set = windowEnd
	}
	ev.SetAzimuth = lastHz.Azimuth
	ev.SetClipped = true
	return &ev, t
}
