package angle

import (
	"fmt"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// FormatRA renders a right ascension in radians as hours, minutes and
// seconds of time, to milliseconds.
func FormatRA(rad float64) string {
	return fmt.Sprintf("%.3s", sexa.FmtRA(unit.RAFromRad(Normalize(rad))))
}

// FormatDec renders a signed angle in radians as degrees, arc minutes and
// arc seconds, to hundredths.
func FormatDec(rad float64) string {
	return fmt.Sprintf("%.2s", sexa.FmtAngle(unit.Angle(rad)))
}

// FormatHours renders a time of day in decimal hours, such as a sidereal
// time, in the same form as FormatRA.
func FormatHours(h float64) string {
	return FormatRA(FromHours(h))
}
