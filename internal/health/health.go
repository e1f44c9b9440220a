package health

import (
	"net/http"
	"sync/atomic"
)

// Checker reports liveness unconditionally and readiness once the catalog
// and body registry have loaded.
type Checker struct {
	ready atomic.Bool
}

// SetReady flips the readiness state.
func (c *Checker) SetReady(ready bool) { c.ready.Store(ready) }

// Healthz returns 200 "ok\n" unconditionally.
func (c *Checker) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" when the service is ready, 503 otherwise.
func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !c.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
