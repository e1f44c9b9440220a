package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthz(t *testing.T) {
	var c Checker
	rec := httptest.NewRecorder()
	c.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	var c Checker

	rec := httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before ready: status = %d, want 503", rec.Code)
	}

	c.SetReady(true)
	rec = httptest.NewRecorder()
	c.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ready\n" {
		t.Errorf("after ready: %d %q", rec.Code, rec.Body.String())
	}
}
