// Package timesys converts between civil UTC date-times and Julian dates
// and computes sidereal time.
//
// Calendar arithmetic is proleptic Gregorian over the years -4712 to 9999.
// Leap seconds and time zones are not modeled: every day has 86400 seconds.
package timesys

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Supported calendar range, inclusive.
const (
	MinYear = -4712
	MaxYear = 9999
)

var (
	// ErrInvalidDate is returned for civil fields outside their calendar range.
	ErrInvalidDate = errors.New("invalid civil date")
	// ErrOutOfRangeEpoch is returned for Julian dates outside the supported calendar.
	ErrOutOfRangeEpoch = errors.New("julian date out of supported range")
)

// CivilDateTime is a UTC calendar date and time of day.
type CivilDateTime struct {
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Day    int     `json:"day"`
	Hour   int     `json:"hour"`
	Minute int     `json:"minute"`
	Second float64 `json:"second"`
}

// Validate checks every field against the calendar. Out-of-range values are
// rejected rather than wrapped into the neighbouring unit.
func (c CivilDateTime) Validate() error {
	if c.Year < MinYear || c.Year > MaxYear {
		return fmt.Errorf("%w: year %d outside [%d, %d]", ErrInvalidDate, c.Year, MinYear, MaxYear)
	}
	if c.Month < 1 || c.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, c.Month)
	}
	if n := DaysInMonth(c.Year, c.Month); c.Day < 1 || c.Day > n {
		return fmt.Errorf("%w: day %d of %04d-%02d", ErrInvalidDate, c.Day, c.Year, c.Month)
	}
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidDate, c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: minute %d", ErrInvalidDate, c.Minute)
	}
	if math.IsNaN(c.Second) || c.Second < 0 || c.Second >= 60 {
		return fmt.Errorf("%w: second %v", ErrInvalidDate, c.Second)
	}
	return nil
}

// dayFraction is the elapsed fraction of the civil day.
func (c CivilDateTime) dayFraction() float64 {
	return (float64(c.Hour) + float64(c.Minute)/60 + c.Second/3600) / 24
}

func (c CivilDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%06.3fZ", c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second)
}

// Time returns the instant as a UTC time.Time.
func (c CivilDateTime) Time() time.Time {
	sec := math.Floor(c.Second)
	nsec := int(math.Round((c.Second - sec) * 1e9))
	return time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, int(sec), nsec, time.UTC)
}

// FromTime converts t to its UTC civil fields.
func FromTime(t time.Time) CivilDateTime {
	t = t.UTC()
	return CivilDateTime{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: float64(t.Second()) + float64(t.Nanosecond())/1e9,
	}
}

// IsLeapYear reports whether year has 366 days in the Gregorian calendar.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns the length of month in year, or 0 for an invalid month.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return monthDays[month-1]
}

// DayOfYear returns the fractional number of days elapsed since January 1,
// 00:00 of the same year. January 1 at noon is 0.5.
func DayOfYear(c CivilDateTime) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	// whole-day Julian dates are exact in float64, so the difference is too
	days := julianDay(c.Year, c.Month, c.Day, 0) - julianDay(c.Year, 1, 1, 0)
	return float64(days) + c.dayFraction(), nil
}
