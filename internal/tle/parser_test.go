package tle

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"

	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

func TestParseThreeLine(t *testing.T) {
	data := "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\r\n" +
		"STARLINK-1007\n" + starlinkLine1 + "\n" + starlinkLine2 + "\n"

	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	iss := entries[0]
	if iss.NORADID != 25544 || iss.Name != "ISS (ZARYA)" {
		t.Errorf("entry 0 = %d %q, want 25544 ISS (ZARYA)", iss.NORADID, iss.Name)
	}
	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !iss.Epoch.Equal(wantEpoch) {
		t.Errorf("epoch = %v, want %v", iss.Epoch, wantEpoch)
	}
	if entries[1].NORADID != 44713 {
		t.Errorf("entry 1 NORAD = %d, want 44713", entries[1].NORADID)
	}
}

func TestParseTwoLine(t *testing.T) {
	entries, err := Parse(strings.NewReader(issLine1+"\n"+issLine2+"\n"), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Name != "25544" {
		t.Errorf("unnamed entry name = %q, want catalog number", entries[0].Name)
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	data := strings.Join([]string{
		"BROKEN",
		"1 00001U short line",
		"2 00001 short line",
		"1 25544U lonely line one without its partner",
		"ISS (ZARYA)",
		issLine1,
		issLine2,
		"TRUNCATED",
		starlinkLine1,
	}, "\n")

	entries, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].NORADID != 25544 {
		t.Fatalf("got %+v, want only the ISS entry", entries)
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"24100.50000000", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC), true},
		{"57001.00000000", time.Date(1957, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"00001.25000000", time.Date(2000, 1, 1, 6, 0, 0, 0, time.UTC), true},
		{"2410", time.Time{}, false},
		{"xx100.5", time.Time{}, false},
		{"24000.50000000", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEpoch(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("parseEpoch(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			}
			if tt.ok && !got.Equal(tt.want) {
				t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateLines(t *testing.T) {
	if err := ValidateLines(issLine1, issLine2); err != nil {
		t.Errorf("valid ISS lines rejected: %v", err)
	}
	if err := ValidateLines(issLine1, starlinkLine2); err == nil {
		t.Error("mismatched catalog numbers accepted")
	}
	if err := ValidateLines(issLine2, issLine1); err == nil {
		t.Error("swapped lines accepted")
	}
	if err := ValidateLines("invalid line 1", "invalid line 2"); err == nil {
		t.Error("short lines accepted")
	}
}

func TestSpan(t *testing.T) {
	if r := Span(nil); !r.Min.IsZero() || !r.Max.IsZero() {
		t.Errorf("Span(nil) = %+v, want zero", r)
	}
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(48 * time.Hour)
	r := Span([]Entry{{Epoch: b}, {Epoch: a}})
	if !r.Min.Equal(a) || !r.Max.Equal(b) {
		t.Errorf("Span = %+v, want [%v, %v]", r, a, b)
	}
}
