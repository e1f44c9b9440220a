package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/star/starcalc/internal/angle"
	"github.com/star/starcalc/internal/auth"
	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/cache"
	"github.com/star/starcalc/internal/catalog"
	"github.com/star/starcalc/internal/ephemeris"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/health"
	"github.com/star/starcalc/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

var fixedNow = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	logger := testLogger()

	cat, err := catalog.Open(context.Background(), logger)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	gen, err := ephemeris.NewGenerator(ephemeris.Config{Workers: 2, Step: time.Minute, Horizon: time.Hour}, logger)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	if cfg.Observer.Ellipsoid.A == 0 {
		cfg.Observer, err = geodesy.NewGeodetic(angle.Radians(40.7128), angle.Radians(-74.0060), 10, geodesy.WGS84)
		if err != nil {
			t.Fatalf("NewGeodetic: %v", err)
		}
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = 1000
	}

	tables := cache.NewTableCache(cache.Config{TTL: time.Hour, MaxEntries: 16}, gen, logger)
	reg := body.NewRegistry([]tle.Entry{{NORADID: 25544, Name: "ISS", Line1: issLine1, Line2: issLine2}}, logger)
	return NewHandler(cfg, Deps{
		Bodies:    reg,
		Catalog:   cat,
		Generator: gen,
		Tables:    tables,
		Now:       func() time.Time { return fixedNow },
	}, logger)
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// TestEphemerisRowBudget verifies that requests exceeding the row budget
// are rejected with 400 instead of consuming unbounded CPU.
func TestEphemerisRowBudget(t *testing.T) {
	h := testHandler(t, Config{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"budget exceeded: horizon=86400 step=1", "?horizon=86400&step=1", http.StatusBadRequest},
		{"budget exceeded: horizon=60000 step=5", "?horizon=60000&step=5", http.StatusBadRequest},
		{"within budget: default params", "", http.StatusOK},
		{"within budget: horizon=900 step=1", "?horizon=900&step=1", http.StatusOK},
		{"zero step", "?step=0", http.StatusBadRequest},
		{"negative horizon", "?horizon=-5", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, "/api/v1/bodies/sun/ephemeris"+tt.query)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var resp map[string]any
			decode(t, w, &resp)
			if tt.wantStatus == http.StatusBadRequest {
				if _, ok := resp["error"]; !ok {
					t.Error("expected error field in 400 response")
				}
			}
			if tt.name == "budget exceeded: horizon=86400 step=1" {
				if resp["max_rows"] != float64(1000) {
					t.Errorf("max_rows = %v, want 1000", resp["max_rows"])
				}
			}
		})
	}
}

func TestEphemeris(t *testing.T) {
	h := testHandler(t, Config{})
	w := get(t, h, "/api/v1/bodies/iss/ephemeris?start=2024-04-10T12:00:00Z&horizon=600&step=60")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp ephemerisResponse
	decode(t, w, &resp)
	if resp.Body != "ISS" {
		t.Errorf("body = %q, want ISS", resp.Body)
	}
	if resp.Count != 11 || len(resp.Rows) != 11 {
		t.Fatalf("count = %d rows = %d, want 11", resp.Count, len(resp.Rows))
	}
	for i, row := range resp.Rows {
		want := fixedNow.Add(time.Duration(i) * time.Minute)
		if !row.Time.Equal(want) {
			t.Errorf("row %d time = %s, want %s", i, row.Time, want)
		}
		if row.Error != "" || row.Equatorial == nil || row.Horizontal == nil {
			t.Fatalf("row %d not computed: %+v", i, row)
		}
		if row.Equatorial.Epoch != "TEME" {
			t.Errorf("row %d epoch = %q, want TEME", i, row.Equatorial.Epoch)
		}
		if row.Horizontal.AzimuthDeg < 0 || row.Horizontal.AzimuthDeg >= 360 {
			t.Errorf("row %d azimuth %f out of range", i, row.Horizontal.AzimuthDeg)
		}
	}
}

func TestEphemerisDefaultStartIsStepAligned(t *testing.T) {
	h := testHandler(t, Config{})
	w := get(t, h, "/api/v1/bodies/moon/ephemeris?horizon=3600&step=600")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var first ephemerisResponse
	decode(t, w, &first)
	if !first.Start.Equal(fixedNow) || first.Count != 7 {
		t.Fatalf("start = %s count = %d, want %s and 7", first.Start, first.Count, fixedNow)
	}

	// A repeated request is served from the table cache with identical rows.
	w = get(t, h, "/api/v1/bodies/moon/ephemeris?horizon=3600&step=600")
	var second ephemerisResponse
	decode(t, w, &second)
	for i := range first.Rows {
		if *first.Rows[i].Equatorial != *second.Rows[i].Equatorial {
			t.Errorf("row %d differs between cached and fresh response", i)
		}
	}
}

func TestPosition(t *testing.T) {
	h := testHandler(t, Config{})

	t.Run("sun at noon on the equator", func(t *testing.T) {
		w := get(t, h, "/api/v1/bodies/sun/position?at=2000-01-01T12:00:00Z&lat=0&lon=0")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp positionResponse
		decode(t, w, &resp)
		if math.Abs(resp.JD-2451545.0) > 1e-9 {
			t.Errorf("jd = %f, want 2451545.0", resp.JD)
		}
		if math.Abs(resp.Horizontal.ElevationDeg-67) > 1 {
			t.Errorf("elevation = %f, want ~67", resp.Horizontal.ElevationDeg)
		}
		if resp.Horizontal.RangeM != nil {
			t.Error("sun should not report a range")
		}
		if math.Abs(resp.Equatorial.DecDeg+23) > 0.2 {
			t.Errorf("dec = %f, want ~-23", resp.Equatorial.DecDeg)
		}
	})

	t.Run("satellite by NORAD id", func(t *testing.T) {
		w := get(t, h, "/api/v1/bodies/25544/position")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp positionResponse
		decode(t, w, &resp)
		if resp.Horizontal.RangeM == nil || *resp.Horizontal.RangeM < 400e3 {
			t.Errorf("range = %v, want > 400 km", resp.Horizontal.RangeM)
		}
		if resp.Observer.Ellipsoid != "WGS84" {
			t.Errorf("ellipsoid = %q, want WGS84", resp.Observer.Ellipsoid)
		}
	})

	t.Run("catalog star", func(t *testing.T) {
		w := get(t, h, "/api/v1/bodies/vega/position")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
	})

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"unknown body", "/api/v1/bodies/pluto/position", http.StatusNotFound},
		{"bad time", "/api/v1/bodies/sun/position?at=yesterday", http.StatusBadRequest},
		{"latitude out of range", "/api/v1/bodies/sun/position?lat=91", http.StatusBadRequest},
		{"unknown ellipsoid", "/api/v1/bodies/sun/position?ellipsoid=flat", http.StatusBadRequest},
		{"non-numeric lon", "/api/v1/bodies/sun/position?lon=east", http.StatusBadRequest},
		{"mars ellipsoid", "/api/v1/bodies/sun/position?ellipsoid=mars2015", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.target)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestTime(t *testing.T) {
	h := testHandler(t, Config{})

	w := get(t, h, "/api/v1/time?at=2000-01-01T12:00:00Z&lon=15")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp timeResponse
	decode(t, w, &resp)
	if math.Abs(resp.JD-2451545.0) > 1e-9 {
		t.Errorf("jd = %f, want 2451545.0", resp.JD)
	}
	if math.Abs(resp.DayOfYear-1.5) > 1e-9 {
		t.Errorf("day_of_year = %f, want 1.5", resp.DayOfYear)
	}
	if math.Abs(resp.GMSTHours-18.697374558) > 1e-6 {
		t.Errorf("gmst = %f, want 18.697374558", resp.GMSTHours)
	}
	if resp.GMST != "18ʰ41ᵐ50.548ˢ" {
		t.Errorf("gmst = %q, want 18ʰ41ᵐ50.548ˢ", resp.GMST)
	}
	if resp.LSTHours == nil || math.Abs(*resp.LSTHours-19.697374558) > 1e-6 {
		t.Errorf("lst = %v, want 19.697374558", resp.LSTHours)
	}

	w = get(t, h, "/api/v1/time")
	var def timeResponse
	decode(t, w, &def)
	if !def.UTC.Equal(fixedNow) {
		t.Errorf("default time = %s, want %s", def.UTC, fixedNow)
	}
	if def.LSTHours != nil {
		t.Error("lst reported without lon")
	}

	if w := get(t, h, "/api/v1/time?lon=200"); w.Code != http.StatusBadRequest {
		t.Errorf("lon=200 status = %d, want 400", w.Code)
	}
}

func TestPasses(t *testing.T) {
	h := testHandler(t, Config{})

	w := get(t, h, "/api/v1/bodies/sun/passes?start=2024-04-10T04:00:00Z&hours=24")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Body   string     `json:"body"`
		Passes []passJSON `json:"passes"`
	}
	decode(t, w, &resp)
	if len(resp.Passes) != 1 {
		t.Fatalf("got %d passes, want 1", len(resp.Passes))
	}
	p := resp.Passes[0]
	wantRise := time.Date(2024, 4, 10, 10, 28, 45, 0, time.UTC)
	if d := p.Rise.Sub(wantRise); d < -2*time.Minute || d > 2*time.Minute {
		t.Errorf("rise = %s, want ~%s", p.Rise, wantRise)
	}
	if math.Abs(p.MaxElevationDeg-57.6) > 0.5 {
		t.Errorf("max elevation = %f, want ~57.6", p.MaxElevationDeg)
	}

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"too many hours", "?hours=200", http.StatusBadRequest},
		{"zero hours", "?hours=0", http.StatusBadRequest},
		{"bad min elevation", "?min_el=95", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := get(t, h, "/api/v1/bodies/sun/passes"+tt.query); w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestReferenceRoutes(t *testing.T) {
	h := testHandler(t, Config{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"bodies", "/api/v1/bodies", http.StatusOK},
		{"ellipsoids", "/api/v1/ellipsoids", http.StatusOK},
		{"ellipsoid", "/api/v1/ellipsoids/wgs84", http.StatusOK},
		{"unknown ellipsoid", "/api/v1/ellipsoids/flat", http.StatusNotFound},
		{"catalog", "/api/v1/catalog?mag=1&page=0&page_size=5", http.StatusOK},
		{"catalog bad page size", "/api/v1/catalog?page_size=500", http.StatusBadRequest},
		{"star", "/api/v1/catalog/sirius", http.StatusOK},
		{"unknown star", "/api/v1/catalog/nostar", http.StatusNotFound},
		{"healthz", "/healthz", http.StatusOK},
		{"readyz", "/readyz", http.StatusOK},
		{"metrics", "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := get(t, h, tt.target); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	w := get(t, h, "/api/v1/bodies")
	var bodies struct {
		Builtin    []string `json:"builtin"`
		Satellites []string `json:"satellites"`
		Stars      []string `json:"stars"`
	}
	decode(t, w, &bodies)
	if len(bodies.Builtin) != 2 || len(bodies.Satellites) != 1 || len(bodies.Stars) == 0 {
		t.Errorf("unexpected bodies listing: %+v", bodies)
	}

	w = get(t, h, "/api/v1/catalog?mag=1&page=0&page_size=5")
	var stars catalog.Stars
	decode(t, w, &stars)
	if len(stars.Stars) != 5 || stars.Total <= 5 {
		t.Errorf("page has %d stars of %d", len(stars.Stars), stars.Total)
	}
}

func TestAuth(t *testing.T) {
	h := testHandler(t, Config{Auth: auth.Config{Enabled: true, Tokens: []string{"secret"}}})

	tests := []struct {
		name       string
		target     string
		header     []string
		wantStatus int
	}{
		{"public time", "/api/v1/time", nil, http.StatusOK},
		{"public ellipsoid", "/api/v1/ellipsoids/wgs84", nil, http.StatusOK},
		{"missing token", "/api/v1/bodies/sun/position", nil, http.StatusUnauthorized},
		{"wrong token", "/api/v1/bodies/sun/position", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"valid token", "/api/v1/bodies/sun/position", []string{"Authorization", "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := get(t, h, tt.target, tt.header...); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := testHandler(t, Config{RateLimit: 1, RateBurst: 2})

	for i := 0; i < 2; i++ {
		if w := get(t, h, "/api/v1/time"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	if w := get(t, h, "/api/v1/time"); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w := get(t, h, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
}

func TestReadyzBeforeReady(t *testing.T) {
	checker := &health.Checker{}
	h := NewHandler(Config{}, Deps{Health: checker}, testLogger())

	if w := get(t, h, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	checker.SetReady(true)
	if w := get(t, h, "/readyz"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&paramError{"x", "y", "z"}, http.StatusBadRequest},
		{body.ErrUnknownBody, http.StatusNotFound},
		{catalog.ErrNotFound, http.StatusNotFound},
		{geodesy.ErrInvalidCoordinate, http.StatusBadRequest},
		{ephemeris.ErrInvalidConfig, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
