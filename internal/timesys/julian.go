package timesys

import (
	"fmt"
	"math"
	"time"
)

// JulianDate is a continuous day count; integer values fall at noon UTC.
type JulianDate float64

const (
	// J2000 is 2000-01-01T12:00:00, the reference epoch of the models.
	J2000 JulianDate = 2451545.0
	// DaysPerCentury is the length of a Julian century.
	DaysPerCentury = 36525.0

	unixEpoch JulianDate = 2440587.5
	msPerDay             = 86400000.0
)

// Bounds of the supported calendar: -4712-01-01T00:00 and 10000-01-01T00:00.
const (
	minJulianDate JulianDate = 37.5
	maxJulianDate JulianDate = 5373484.5
)

// Centuries returns Julian centuries elapsed since J2000.
func (jd JulianDate) Centuries() float64 {
	return float64(jd-J2000) / DaysPerCentury
}

// Validate returns ErrOutOfRangeEpoch for NaN and infinite dates, which no
// model can evaluate. Finite dates outside the calendar range are accepted.
func (jd JulianDate) Validate() error {
	if f := float64(jd); math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v", ErrOutOfRangeEpoch, f)
	}
	return nil
}

// AddDuration shifts jd by d.
func (jd JulianDate) AddDuration(d time.Duration) JulianDate {
	return jd + JulianDate(d.Seconds()/86400)
}

// Time converts jd to a UTC time.Time at millisecond resolution.
func (jd JulianDate) Time() time.Time {
	ms := math.Round(float64(jd-unixEpoch) * msPerDay)
	return time.UnixMilli(int64(ms)).UTC()
}

// julianDay is the Gregorian calendar to Julian day conversion
// (Meeus, Astronomical Algorithms, ch. 7). Fields are not validated.
func julianDay(year, month, day int, frac float64) JulianDate {
	y := float64(year)
	m := float64(month)
	if month <= 2 {
		y--
		m += 12
	}
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)
	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + float64(day) + b - 1524.5
	return JulianDate(jd + frac)
}

// CivilToJulian converts a validated UTC civil date-time to a Julian date.
func CivilToJulian(c CivilDateTime) (JulianDate, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	return julianDay(c.Year, c.Month, c.Day, c.dayFraction()), nil
}

// JulianDateOf converts t without range validation.
func JulianDateOf(t time.Time) JulianDate {
	c := FromTime(t)
	return julianDay(c.Year, c.Month, c.Day, c.dayFraction())
}

// JulianToCivil is the inverse of CivilToJulian, resolved to the millisecond.
func JulianToCivil(jd JulianDate) (CivilDateTime, error) {
	f := float64(jd)
	if math.IsNaN(f) || math.IsInf(f, 0) || jd < minJulianDate || jd >= maxJulianDate {
		return CivilDateTime{}, fmt.Errorf("%w: %v", ErrOutOfRangeEpoch, f)
	}

	z := math.Floor(f + 0.5)
	ms := math.Round((f + 0.5 - z) * msPerDay)
	if ms >= msPerDay {
		z++
		ms -= msPerDay
	}

	alpha := math.Floor((z - 1867216.25) / 36524.25)
	a := z + 1 + alpha - math.Floor(alpha/4)
	b := a + 1524
	c := math.Floor((b - 122.1) / 365.25)
	d := math.Floor(365.25 * c)
	e := math.Floor((b - d) / 30.6001)

	var out CivilDateTime
	out.Day = int(b - d - math.Floor(30.6001*e))
	if e < 14 {
		out.Month = int(e - 1)
	} else {
		out.Month = int(e - 13)
	}
	if out.Month > 2 {
		out.Year = int(c - 4716)
	} else {
		out.Year = int(c - 4715)
	}
	if out.Year > MaxYear {
		return CivilDateTime{}, fmt.Errorf("%w: %v", ErrOutOfRangeEpoch, f)
	}

	msi := int64(ms)
	out.Hour = int(msi / 3600000)
	msi %= 3600000
	out.Minute = int(msi / 60000)
	msi %= 60000
	out.Second = float64(msi) / 1000
	return out, nil
}
