package body

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/star/starcalc/internal/tle"
)

// Registry resolves names to the built-in bodies and to satellites loaded
// from a TLE set. Immutable after construction; safe for concurrent reads.
type Registry struct {
	sats  map[string]*Satellite // by lower-case name and by NORAD ID
	names []string
}

// NewRegistry initializes SGP4 for every entry. Entries that fail to
// initialize are logged and skipped; the first entry wins on duplicate IDs.
func NewRegistry(entries []tle.Entry, logger *slog.Logger) *Registry {
	r := &Registry{sats: make(map[string]*Satellite, 2*len(entries))}
	var skipped int
	for _, e := range entries {
		id := strconv.Itoa(e.NORADID)
		if _, ok := r.sats[id]; ok {
			continue
		}
		sat, err := NewSatellite(e)
		if err != nil {
			logger.Warn("sgp4 init failed", "norad_id", e.NORADID, "error", err)
			skipped++
			continue
		}
		r.sats[id] = sat
		key := strings.ToLower(sat.Name())
		if _, ok := builtin[key]; !ok {
			if _, ok := r.sats[key]; !ok {
				r.sats[key] = sat
			}
		}
		r.names = append(r.names, sat.Name())
	}
	sort.Strings(r.names)

	logger.Info("satellite registry built",
		"satellites", len(r.names),
		"skipped", skipped,
	)
	return r
}

// Lookup resolves a built-in body, then a satellite by name or NORAD ID.
func (r *Registry) Lookup(name string) (Body, error) {
	if b, err := Lookup(name); err == nil {
		return b, nil
	}
	if r != nil {
		if sat, ok := r.sats[strings.ToLower(strings.TrimSpace(name))]; ok {
			return sat, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBody, name)
}

// Satellites lists the loaded satellite names.
func (r *Registry) Satellites() []string {
	if r == nil {
		return nil
	}
	return r.names
}
