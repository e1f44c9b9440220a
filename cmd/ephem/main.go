package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/catalog"
	"github.com/star/starcalc/internal/ephemeris"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/passes"
	"github.com/star/starcalc/internal/tle"
)

var (
	bodyName  = kingpin.Flag("body", "body name: sun, moon, a catalog star, or a satellite from --tle").Default("sun").String()
	lat       = kingpin.Flag("lat", "observer latitude (degrees)").Default("0").Float64()
	lon       = kingpin.Flag("lon", "observer longitude (degrees, east positive)").Default("0").Float64()
	elev      = kingpin.Flag("elev", "observer elevation (meters)").Default("0").Float64()
	ellipsoid = kingpin.Flag("ellipsoid", "reference ellipsoid").Default("WGS84").String()
	start     = kingpin.Flag("start", "start time (RFC 3339); defaults to now").String()
	hours     = kingpin.Flag("hours", "span in hours").Default("24").Float64()
	step      = kingpin.Flag("step", "sample interval").Default("1h").Duration()
	workers   = kingpin.Flag("workers", "worker pool size").Default(fmt.Sprint(runtime.NumCPU())).Int()
	tleFile   = kingpin.Flag("tle", "TLE file with satellites").ExistingFile()
	showPass  = kingpin.Flag("passes", "print rise/set passes instead of a table").Bool()
	minEl     = kingpin.Flag("min-el", "minimum pass elevation (degrees)").Default("0").Float64()
	verbose   = kingpin.Flag("verbose", "log at debug level").Short('v').Bool()
)

func main() {
	kingpin.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger); err != nil {
		fmt.Fprintln(os.Stderr, "ephem:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	e, ok := geodesy.LookupEllipsoid(*ellipsoid)
	if !ok {
		return fmt.Errorf("unknown ellipsoid %q", *ellipsoid)
	}
	obs, err := geodesy.NewGeodetic(angle.Radians(*lat), angle.Radians(*lon), *elev, e)
	if err != nil {
		return err
	}

	t0 := time.Now().UTC()
	if *start != "" {
		if t0, err = time.Parse(time.RFC3339, *start); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		t0 = t0.UTC()
	}

	b, err := resolve(ctx, logger)
	if err != nil {
		return err
	}

	horizon := time.Duration(*hours * float64(time.Hour))
	if *showPass {
		return printPasses(ctx, b, obs, t0)
	}
	return printTable(ctx, logger, b, obs, t0, horizon)
}

func resolve(ctx context.Context, logger *slog.Logger) (body.Body, error) {
	var entries []tle.Entry
	if *tleFile != "" {
		f, err := os.Open(*tleFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if entries, err = tle.Parse(f, logger); err != nil {
			return nil, err
		}
	}

	b, err := body.NewRegistry(entries, logger).Lookup(*bodyName)
	if err == nil {
		return b, nil
	}

	cat, cerr := catalog.Open(ctx, logger)
	if cerr != nil {
		return nil, cerr
	}
	defer cat.Close()
	star, cerr := cat.Get(ctx, *bodyName)
	if cerr != nil {
		return nil, err
	}
	return star.Body(), nil
}

func printTable(ctx context.Context, logger *slog.Logger, b body.Body, obs geodesy.GeodeticCoordinate, t0 time.Time, horizon time.Duration) error {
	gen, err := ephemeris.NewGenerator(ephemeris.Config{Workers: *workers, Step: *step, Horizon: horizon}, logger)
	if err != nil {
		return err
	}
	table, err := gen.Generate(ctx, b, obs, t0)
	if err != nil {
		return err
	}

	fmt.Printf("%s from %s, observer %.4f %.4f %.0fm (%s)\n\n",
		table.Body, t0.Format(time.RFC3339), *lat, *lon, *elev, obs.Ellipsoid.Name)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tJD\tRA\tDEC\tAZ\tEL")
	for _, row := range table.Rows {
		if !row.OK() {
			fmt.Fprintf(w, "%s\t%.5f\terror: %v\t\t\t\n", row.Time.Format(time.RFC3339), float64(row.JD), row.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.5f\t%s\t%s\t%7.2f\t%6.2f\n",
			row.Time.Format(time.RFC3339),
			float64(row.JD),
			angle.FormatRA(row.Equatorial.RA),
			angle.FormatDec(row.Equatorial.Dec),
			angle.Degrees(row.Horizontal.Azimuth),
			angle.Degrees(row.Horizontal.Elevation),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if table.Failed > 0 {
		fmt.Printf("\n%d of %d samples failed\n", table.Failed, len(table.Rows))
	}
	return nil
}

func printPasses(ctx context.Context, b body.Body, obs geodesy.GeodeticCoordinate, t0 time.Time) error {
	results, err := passes.Predict(ctx, passes.Request{
		Observer:     obs,
		Bodies:       []body.Body{b},
		Start:        t0,
		HorizonHours: *hours,
		MinElevation: angle.Radians(*minEl),
		Workers:      *workers,
	})
	if err != nil {
		return err
	}

	res := results[0]
	if res.Err != nil {
		return res.Err
	}
	fmt.Printf("%s: %d passes in %.0fh from %s\n\n", res.Body, len(res.Passes), *hours, t0.Format(time.RFC3339))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RISE\tAZ\tCULMINATION\tMAX EL\tSET\tAZ\tDURATION")
	for _, p := range res.Passes {
		rise := p.Rise.Format(time.RFC3339)
		if p.RiseClipped {
			rise = "<" + rise
		}
		set := p.Set.Format(time.RFC3339)
		if p.SetClipped {
			set = ">" + set
		}
		fmt.Fprintf(w, "%s\t%6.1f\t%s\t%5.1f\t%s\t%6.1f\t%s\n",
			rise,
			angle.Degrees(p.RiseAzimuth),
			p.Culmination.Format(time.RFC3339),
			angle.Degrees(p.MaxElevation),
			set,
			angle.Degrees(p.SetAzimuth),
			p.Duration().Round(time.Second),
		)
	}
	return w.Flush()
}
