// Package catalog is a small named-star catalog kept in an in-memory SQLite
// database and queried with composable options.
package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/parsyl/sqrl"
	"modernc.org/sqlite"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/metrics"
	"github.com/star/starcalc/internal/transform"
)

// ErrNotFound is returned by Get for names not in the catalog.
var ErrNotFound = errors.New("star not found")

var columns = []string{
	"name",
	"constellation",
	"ra",
	"dec",
	"ra_radians",
	"dec_radians",
	"magnitude",
}

const schema = `CREATE TABLE stars (
	name          TEXT PRIMARY KEY COLLATE NOCASE,
	constellation TEXT NOT NULL,
	ra            TEXT NOT NULL,
	dec           TEXT NOT NULL,
	ra_radians    REAL NOT NULL,
	dec_radians   REAL NOT NULL,
	magnitude     REAL NOT NULL
)`

type (
	// Star is one catalog entry. RA and Dec keep the published sexagesimal
	// text alongside the J2000 radians.
	Star struct {
		Name          string  `json:"name"`
		Constellation string  `json:"constellation"`
		RA            string  `json:"ra"`
		Dec           string  `json:"dec"`
		RARadians     float64 `json:"ra_radians"`
		DecRadians    float64 `json:"dec_radians"`
		Magnitude     float64 `json:"magnitude"`
	}

	Stars struct {
		Stars []Star `json:"stars"`
		Total int    `json:"total"`
	}

	QueryOption func(*sqrl.SelectBuilder)

	// Catalog is safe for concurrent use.
	Catalog struct {
		db     *sql.DB
		logger *slog.Logger
	}
)

// Body returns the star as a fixed J2000 body.
func (s Star) Body() body.FixedStar {
	return body.FixedStar{
		Label: s.Name,
		Coord: transform.EquatorialCoordinate{RA: s.RARadians, Dec: s.DecRadians, Epoch: transform.EpochJ2000},
	}
}

var registerOnce sync.Once
var registerErr error

// Open creates the in-memory database and loads the built-in stars.
func Open(ctx context.Context, logger *slog.Logger) (*Catalog, error) {
	registerOnce.Do(func() {
		if err := sqlite.RegisterScalarFunction("hour_angle", 2, hourAngle); err != nil {
			registerErr = fmt.Errorf("unable to register hour_angle func: %w", err)
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, logger: logger}
	if err := c.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) load(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	ins := sqrl.Insert("stars").Columns(columns...)
	for _, s := range brightStars {
		ra, dec := s.ra.Rad(), s.dec.Rad()
		ins.Values(s.name, s.constellation, angle.FormatRA(ra), angle.FormatDec(dec), ra, dec, s.magnitude)
	}

	q, args, err := ins.ToSql()
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("seed stars: %w", err)
	}

	metrics.SetCatalogSize(len(brightStars))
	c.logger.Debug("star catalog loaded", "stars", len(brightStars))
	return nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// hourAngle is registered as the SQL function hour_angle(ra, lst).
func hourAngle(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	ra, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("hour_angle: bad ra %v", args[0])
	}
	lst, ok := toFloat(args[1])
	if !ok {
		return nil, fmt.Errorf("hour_angle: bad lst %v", args[1])
	}
	return transform.HourAngle(ra, lst), nil
}

func toFloat(v driver.Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Get returns the star with the given case-insensitive name.
func (c *Catalog) Get(ctx context.Context, name string) (s Star, err error) {
	sel := sqrl.Select(columns...).
		From("stars").
		Where("name = ?", name)

	q, args, _ := sel.ToSql()
	err = c.db.QueryRowContext(ctx, q, args...).Scan(&s.Name, &s.Constellation, &s.RA, &s.Dec, &s.RARadians, &s.DecRadians, &s.Magnitude)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s, err
}

// List returns the stars matching every option, brightest first. Total
// counts all matches regardless of page.
func (c *Catalog) List(ctx context.Context, page QueryOption, opts ...QueryOption) (stars Stars, err error) {
	cte := sqrl.Select(columns...).
		From("stars")

	for _, o := range opts {
		o(cte)
	}

	q, args, _ := cte.ToSql()
	count := fmt.Sprintf("WITH matched AS (%s) SELECT count(*) FROM matched", q)

	if err := c.db.QueryRowContext(ctx, count, args...).Scan(&stars.Total); err != nil {
		return stars, err
	}

	sel := sqrl.Select(columns...).
		From("matched").
		Prefix(fmt.Sprintf("WITH matched AS (%s)", q), args...).
		OrderBy("magnitude", "name")

	if page != nil {
		page(sel)
	}

	q, args, _ = sel.ToSql()
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return stars, err
	}
	defer rows.Close()

	stars.Stars = []Star{}
	for rows.Next() {
		var s Star
		if err := rows.Scan(&s.Name, &s.Constellation, &s.RA, &s.Dec, &s.RARadians, &s.DecRadians, &s.Magnitude); err != nil {
			return stars, err
		}
		stars.Stars = append(stars.Stars, s)
	}

	return stars, rows.Err()
}

// BrighterThan keeps stars with a visual magnitude at or below mag.
func BrighterThan(mag float64) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		sel.Where("magnitude <= ?", mag)
	}
}

// Constellation keeps stars in the constellation with the given IAU abbreviation.
func Constellation(abbr string) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		sel.Where("constellation = ? COLLATE NOCASE", abbr)
	}
}

func NameLike(s string) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		sel.Where("name LIKE ?", fmt.Sprintf("%%%s%%", s))
	}
}

// AboveHorizon keeps stars above the horizon of an observer at geodetic
// latitude lat for local sidereal time lst (both radians).
func AboveHorizon(lat, lst float64) QueryOption {
	sinLat, cosLat := math.Sincos(lat)
	return func(sel *sqrl.SelectBuilder) {
		sel.Where("(? * sin(dec_radians) + ? * cos(dec_radians) * cos(hour_angle(ra_radians, ?))) > 0", sinLat, cosLat, lst)
	}
}

func Page(p, ps int) QueryOption {
	return func(sel *sqrl.SelectBuilder) {
		if ps > 0 {
			sel.Limit(uint64(ps)).Offset(uint64(p * ps))
		}
	}
}
