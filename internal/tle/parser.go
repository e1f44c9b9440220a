package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads NORAD element sets from r. Both the 3-line format (name line
// followed by the two element lines) and the bare 2-line format are accepted;
// unnamed entries are named after their catalog number.
// Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	for i := 0; i+1 < len(lines); {
		var name string
		if !strings.HasPrefix(lines[i], "1 ") {
			name = strings.TrimSpace(lines[i])
			i++
			if i+1 >= len(lines) {
				logger.Warn("skipping truncated TLE entry", "name", name)
				break
			}
		}
		line1, line2 := lines[i], lines[i+1]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Resynchronize on the next line.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			if name == "" {
				i++
			}
			continue
		}
		i += 2

		if err := ValidateLines(line1, line2); err != nil {
			logger.Warn("skipping invalid TLE entry", "name", name, "error", err)
			continue
		}

		noradStr := strings.TrimSpace(line1[2:7])
		noradID, err := strconv.Atoi(noradStr)
		if err != nil {
			logger.Warn("skipping TLE entry with invalid NORAD ID", "norad_str", noradStr, "name", name)
			continue
		}

		epochStr := strings.TrimSpace(line1[18:32])
		epoch, err := parseEpoch(epochStr)
		if err != nil {
			logger.Warn("skipping TLE entry with invalid epoch", "epoch_str", epochStr, "name", name, "error", err)
			continue
		}

		if name == "" {
			name = strconv.Itoa(noradID)
		}
		entries = append(entries, Entry{
			NORADID: noradID,
			Name:    name,
			Epoch:   epoch,
			Line1:   line1,
			Line2:   line2,
		})
	}

	return entries, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %v out of range", dayOfYear)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
