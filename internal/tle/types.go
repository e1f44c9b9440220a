// Package tle reads NORAD two-line element sets for the satellite body.
package tle

import (
	"fmt"
	"strings"
	"time"
)

// Entry is a single satellite's two-line element set.
type Entry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// EpochRange is the span of element epochs in a set of entries.
type EpochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// Span returns the epoch range of entries, or the zero range for none.
func Span(entries []Entry) EpochRange {
	if len(entries) == 0 {
		return EpochRange{}
	}
	r := EpochRange{Min: entries[0].Epoch, Max: entries[0].Epoch}
	for _, e := range entries[1:] {
		if e.Epoch.Before(r.Min) {
			r.Min = e.Epoch
		}
		if e.Epoch.After(r.Max) {
			r.Max = e.Epoch
		}
	}
	return r
}

// ValidateLines performs the format checks the SGP4 library relies on:
// go-satellite calls log.Fatal on malformed input, which would kill the process.
func ValidateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("catalog number mismatch: %q vs %q", line1[2:7], line2[2:7])
	}
	return nil
}
