package httputil

import (
	"encoding/json"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.ips[ip] = limiter
	}

	return limiter
}

// Middleware rejects requests over the per-IP rate with 429. Paths in
// exempt are never limited.
func (l *IPRateLimiter) Middleware(trustProxy bool, exempt map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] || l.GetLimiter(LimitKey(ClientIP(r, trustProxy))).Allow() {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}
}

// ConcurrencyLimiter tracks in-flight requests per IP and globally.
type ConcurrencyLimiter struct {
	mu       sync.Mutex
	inFlight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func NewConcurrencyLimiter(maxPerIP, maxTotal int) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{
		inFlight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// Acquire attempts to register a new request for the given IP.
// Returns false if the IP or global limit has been reached.
func (l *ConcurrencyLimiter) Acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.inFlight[ip] >= l.maxPerIP {
		return false
	}

	l.inFlight[ip]++
	l.total++
	return true
}

// Release decrements the in-flight count for the given IP.
func (l *ConcurrencyLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight[ip]--
	l.total--
	if l.inFlight[ip] <= 0 {
		delete(l.inFlight, ip)
	}
}

// Count returns the number of in-flight requests for the given IP.
func (l *ConcurrencyLimiter) Count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[ip]
}

// Wrap bounds concurrent executions of next; excess requests get 503.
func (l *ConcurrencyLimiter) Wrap(trustProxy bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := LimitKey(ClientIP(r, trustProxy))
		if !l.Acquire(ip) {
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusServiceUnavailable, "too many concurrent requests")
			return
		}
		defer l.Release(ip)
		next(w, r)
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
