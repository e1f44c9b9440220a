package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/cache"
	"github.com/star/starcalc/internal/catalog"
	"github.com/star/starcalc/internal/ephemeris"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/httputil"
	"github.com/star/starcalc/internal/passes"
	"github.com/star/starcalc/internal/timesys"
	"github.com/star/starcalc/internal/transform"
)

type handlers struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

type observerJSON struct {
	LatDeg     float64 `json:"lat_deg"`
	LonDeg     float64 `json:"lon_deg"`
	ElevationM float64 `json:"elevation_m"`
	Ellipsoid  string  `json:"ellipsoid"`
}

func observerDTO(g geodesy.GeodeticCoordinate) observerJSON {
	return observerJSON{
		LatDeg:     angle.Degrees(g.Lat),
		LonDeg:     angle.Degrees(g.Lon),
		ElevationM: g.Elevation,
		Ellipsoid:  g.Ellipsoid.Name,
	}
}

type equatorialJSON struct {
	RAHours float64 `json:"ra_hours"`
	DecDeg  float64 `json:"dec_deg"`
	RA      string  `json:"ra"`
	Dec     string  `json:"dec"`
	Epoch   string  `json:"epoch"`
}

func equatorialDTO(eq transform.EquatorialCoordinate) equatorialJSON {
	return equatorialJSON{
		RAHours: angle.Hours(eq.RA),
		DecDeg:  angle.Degrees(eq.Dec),
		RA:      angle.FormatRA(eq.RA),
		Dec:     angle.FormatDec(eq.Dec),
		Epoch:   eq.Epoch,
	}
}

type horizontalJSON struct {
	AzimuthDeg   float64  `json:"azimuth_deg"`
	ElevationDeg float64  `json:"elevation_deg"`
	RangeM       *float64 `json:"range_m,omitempty"`
}

func horizontalDTO(hz transform.HorizontalCoordinate) horizontalJSON {
	return horizontalJSON{
		AzimuthDeg:   angle.Degrees(hz.Azimuth),
		ElevationDeg: angle.Degrees(hz.Elevation),
	}
}

// resolveBody finds name among the built-in bodies, loaded satellites and
// catalog stars, in that order.
func (h *handlers) resolveBody(ctx context.Context, name string) (body.Body, error) {
	b, err := h.deps.Bodies.Lookup(name)
	if err == nil || h.deps.Catalog == nil {
		return b, err
	}
	star, err := h.deps.Catalog.Get(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", body.ErrUnknownBody, name)
	}
	if err != nil {
		return nil, err
	}
	return star.Body(), nil
}

type timeResponse struct {
	UTC       time.Time `json:"utc"`
	Civil     string    `json:"civil"`
	JD        float64   `json:"jd"`
	Centuries float64   `json:"centuries_since_j2000"`
	DayOfYear float64   `json:"day_of_year"`
	GMSTHours float64   `json:"gmst_hours"`
	GMST      string    `json:"gmst"`
	LSTHours  *float64  `json:"lst_hours,omitempty"`
	LST       string    `json:"lst,omitempty"`
}

func (h *handlers) timeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	at, err := timeParam(q, "at", h.deps.Now())
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	civil := timesys.FromTime(at)
	jd, err := timesys.CivilToJulian(civil)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	doy, err := timesys.DayOfYear(civil)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	gmst := angle.Hours(timesys.GreenwichMeanSiderealTime(jd))
	resp := timeResponse{
		UTC:       at,
		Civil:     civil.String(),
		JD:        float64(jd),
		Centuries: jd.Centuries(),
		DayOfYear: doy,
		GMSTHours: gmst,
		GMST:      angle.FormatHours(gmst),
	}

	if q.Get("lon") != "" {
		lon, err := floatParam(q, "lon", 0)
		if err == nil && (lon < -180 || lon > 180) {
			err = &paramError{"lon", q.Get("lon"), "must be in [-180, 180]"}
		}
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		lst := angle.Hours(timesys.LocalSiderealTime(jd, angle.Radians(lon)))
		resp.LSTHours = &lst
		resp.LST = angle.FormatHours(lst)
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) bodiesHandler(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Builtin    []string `json:"builtin"`
		Satellites []string `json:"satellites"`
		Stars      []string `json:"stars"`
	}{
		Builtin:    body.Names(),
		Satellites: h.deps.Bodies.Satellites(),
		Stars:      []string{},
	}
	if resp.Satellites == nil {
		resp.Satellites = []string{}
	}

	if h.deps.Catalog != nil {
		stars, err := h.deps.Catalog.List(r.Context(), nil)
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		for _, s := range stars.Stars {
			resp.Stars = append(resp.Stars, s.Name)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type positionResponse struct {
	Body       string         `json:"body"`
	Time       time.Time      `json:"time"`
	JD         float64        `json:"jd"`
	Observer   observerJSON   `json:"observer"`
	Equatorial equatorialJSON `json:"equatorial"`
	Horizontal horizontalJSON `json:"horizontal"`
}

func (h *handlers) positionHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := h.resolveBody(r.Context(), r.PathValue("name"))
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	at, err := timeParam(q, "at", h.deps.Now())
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	obs, err := observerParam(q, h.cfg.Observer)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	jd, err := timesys.CivilToJulian(timesys.FromTime(at))
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	eq, err := b.PositionAt(jd)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	var hz horizontalJSON
	if tb, ok := b.(body.Topocentric); ok {
		la, err := tb.LookAnglesAt(obs, jd)
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		hz = horizontalDTO(la.HorizontalCoordinate)
		rng := la.Range
		hz.RangeM = &rng
	} else {
		coord, err := transform.EquatorialToHorizontal(eq, obs, jd)
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		hz = horizontalDTO(coord)
	}

	httputil.WriteJSON(w, http.StatusOK, positionResponse{
		Body:       b.Name(),
		Time:       at,
		JD:         float64(jd),
		Observer:   observerDTO(obs),
		Equatorial: equatorialDTO(eq),
		Horizontal: hz,
	})
}

type rowJSON struct {
	Time       time.Time       `json:"time"`
	JD         float64         `json:"jd"`
	Equatorial *equatorialJSON `json:"equatorial,omitempty"`
	Horizontal *horizontalJSON `json:"horizontal,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type ephemerisResponse struct {
	Body        string       `json:"body"`
	Observer    observerJSON `json:"observer"`
	Start       time.Time    `json:"start"`
	StepSeconds float64      `json:"step_seconds"`
	Count       int          `json:"count"`
	Failed      int          `json:"failed"`
	Rows        []rowJSON    `json:"rows"`
}

func (h *handlers) ephemerisHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := h.resolveBody(r.Context(), r.PathValue("name"))
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	def := h.deps.Generator.Config()
	horizon, err := secondsParam(q, "horizon", def.Horizon, 0)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	step, err := secondsParam(q, "step", def.Step, 1)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	start, err := timeParam(q, "start", cache.RoundToStep(h.deps.Now(), step))
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	obs, err := observerParam(q, h.cfg.Observer)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	// Enforce the row budget before doing any work.
	samples := ephemeris.Config{Step: step, Horizon: horizon}.Samples()
	if h.cfg.MaxRows > 0 && samples > h.cfg.MaxRows {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":    fmt.Sprintf("request needs %d rows; reduce horizon or increase step", samples),
			"max_rows": h.cfg.MaxRows,
		})
		return
	}

	var table *ephemeris.Table
	if h.deps.Tables != nil {
		table, err = h.deps.Tables.Generate(r.Context(), b, obs, start, step, horizon)
	} else {
		table, err = h.deps.Generator.GenerateWith(r.Context(), b, obs, start, step, horizon)
	}
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	resp := ephemerisResponse{
		Body:        table.Body,
		Observer:    observerDTO(obs),
		Start:       start,
		StepSeconds: step.Seconds(),
		Count:       len(table.Rows),
		Failed:      table.Failed,
		Rows:        make([]rowJSON, 0, len(table.Rows)),
	}
	for _, row := range table.Rows {
		rj := rowJSON{Time: row.Time, JD: float64(row.JD)}
		if row.Err != nil {
			rj.Error = row.Err.Error()
		} else {
			eq := equatorialDTO(row.Equatorial)
			hz := horizontalDTO(row.Horizontal)
			rj.Equatorial = &eq
			rj.Horizontal = &hz
		}
		resp.Rows = append(resp.Rows, rj)
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type groundTrackJSON struct {
	Time         time.Time `json:"time"`
	LatDeg       float64   `json:"lat_deg"`
	LonDeg       float64   `json:"lon_deg"`
	AltitudeM    float64   `json:"altitude_m"`
	ElevationDeg float64   `json:"elevation_deg"`
}

type passJSON struct {
	Rise            time.Time         `json:"rise"`
	Culmination     time.Time         `json:"culmination"`
	Set             time.Time         `json:"set"`
	DurationSeconds float64           `json:"duration_seconds"`
	MaxElevationDeg float64           `json:"max_elevation_deg"`
	AzimuthAtMaxDeg float64           `json:"azimuth_at_max_deg"`
	RiseAzimuthDeg  float64           `json:"rise_azimuth_deg"`
	SetAzimuthDeg   float64           `json:"set_azimuth_deg"`
	RiseClipped     bool              `json:"rise_clipped,omitempty"`
	SetClipped      bool              `json:"set_clipped,omitempty"`
	GroundTrack     []groundTrackJSON `json:"ground_track,omitempty"`
}

func passDTO(p passes.Event) passJSON {
	pj := passJSON{
		Rise:            p.Rise,
		Culmination:     p.Culmination,
		Set:             p.Set,
		DurationSeconds: p.Duration().Seconds(),
		MaxElevationDeg: angle.Degrees(p.MaxElevation),
		AzimuthAtMaxDeg: angle.Degrees(p.AzimuthAtMax),
		RiseAzimuthDeg:  angle.Degrees(p.RiseAzimuth),
		SetAzimuthDeg:   angle.Degrees(p.SetAzimuth),
		RiseClipped:     p.RiseClipped,
		SetClipped:      p.SetClipped,
	}
	for _, gt := range p.GroundTrack {
		pj.GroundTrack = append(pj.GroundTrack, groundTrackJSON{
			Time:         gt.Time,
			LatDeg:       angle.Degrees(gt.Point.Lat),
			LonDeg:       angle.Degrees(gt.Point.Lon),
			AltitudeM:    gt.Point.Elevation,
			ElevationDeg: angle.Degrees(gt.Elevation),
		})
	}
	return pj
}

func (h *handlers) passesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := h.resolveBody(r.Context(), r.PathValue("name"))
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	start, err := timeParam(q, "start", h.deps.Now())
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	hours, err := floatParam(q, "hours", 24)
	if err == nil && (hours <= 0 || hours > maxPassHours) {
		err = &paramError{"hours", q.Get("hours"), fmt.Sprintf("must be in (0, %d]", maxPassHours)}
	}
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	minEl, err := floatParam(q, "min_el", 0)
	if err == nil && (minEl < -90 || minEl > 90) {
		err = &paramError{"min_el", q.Get("min_el"), "must be in [-90, 90]"}
	}
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	obs, err := observerParam(q, h.cfg.Observer)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}

	results, err := passes.Predict(r.Context(), passes.Request{
		Observer:     obs,
		Bodies:       []body.Body{b},
		Start:        start,
		HorizonHours: hours,
		MinElevation: angle.Radians(minEl),
		Workers:      1,
	})
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	res := results[0]
	if res.Err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, res.Err.Error())
		return
	}

	out := make([]passJSON, 0, len(res.Passes))
	for _, p := range res.Passes {
		out = append(out, passDTO(p))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"body":              res.Body,
		"observer":          observerDTO(obs),
		"start":             start,
		"hours":             hours,
		"min_elevation_deg": minEl,
		"passes":            out,
	})
}

func (h *handlers) ellipsoidsHandler(w http.ResponseWriter, r *http.Request) {
	out := []geodesy.Ellipsoid{}
	for _, name := range geodesy.EllipsoidNames() {
		e, _ := geodesy.LookupEllipsoid(name)
		out = append(out, e)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ellipsoids": out})
}

func (h *handlers) ellipsoidHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	e, ok := geodesy.LookupEllipsoid(name)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown ellipsoid %q", name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *handlers) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if h.deps.Catalog == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	q := r.URL.Query()

	var opts []catalog.QueryOption
	if q.Get("mag") != "" {
		mag, err := floatParam(q, "mag", 0)
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		opts = append(opts, catalog.BrighterThan(mag))
	}
	if c := q.Get("constellation"); c != "" {
		opts = append(opts, catalog.Constellation(c))
	}
	if s := q.Get("name"); s != "" {
		opts = append(opts, catalog.NameLike(s))
	}
	if q.Get("visible") == "true" {
		at, err := timeParam(q, "at", h.deps.Now())
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		obs, err := observerParam(q, h.cfg.Observer)
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		lst := timesys.LocalSiderealTime(timesys.JulianDateOf(at), obs.Lon)
		opts = append(opts, catalog.AboveHorizon(obs.Lat, lst))
	}

	var pg catalog.QueryOption
	if q.Get("page_size") != "" {
		page, err := intParam(q, "page", 0, 0, 1<<20)
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		size, err := intParam(q, "page_size", 0, 1, 100)
		if err != nil {
			writeErr(w, h.logger, r, err)
			return
		}
		pg = catalog.Page(page, size)
	}

	stars, err := h.deps.Catalog.List(r.Context(), pg, opts...)
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stars)
}

func (h *handlers) starHandler(w http.ResponseWriter, r *http.Request) {
	if h.deps.Catalog == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	star, err := h.deps.Catalog.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		writeErr(w, h.logger, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, star)
}
