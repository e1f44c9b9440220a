// Package auth guards the computation endpoints with static bearer tokens.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/star/starcalc/internal/httputil"
)

// Config holds authentication configuration. Several tokens may be valid at
// once so that a new token can be rolled out before the old one is retired.
type Config struct {
	Enabled bool
	Tokens  []string
}

// ParseTokens splits a comma-separated token list, dropping blanks.
func ParseTokens(s string) []string {
	var tokens []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Reference data is cheap to serve and stays public; body computations do not.
var exemptPaths = map[string]bool{
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/time":       true,
	"/api/v1/ellipsoids": true,
}

var exemptPrefixes = []string{
	"/api/v1/ellipsoids/",
}

func isExempt(path string) bool {
	if exemptPaths[path] {
		return true
	}
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// valid compares token against every configured token without
// short-circuiting.
func (c Config) valid(token string) bool {
	match := 0
	for _, t := range c.Tokens {
		match |= subtle.ConstantTimeCompare([]byte(token), []byte(t))
	}
	return match == 1
}

// Middleware enforces Bearer token auth on non-exempt paths when enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" || !cfg.valid(token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="starcalc"`)
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
