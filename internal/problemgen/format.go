package problemgen

import (
	"fmt"
	"math"
	"strconv"
)

// FormatFixed renders v with exactly decimals fractional digits. Negative
// zero renders as zero.
func FormatFixed(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == 0 {
		return strconv.FormatFloat(0, 'f', decimals, 64)
	}
	return s
}

// FormatDMS renders decimal degrees as D°MM'SS", rounded to the nearest
// second.
func FormatDMS(deg float64) string {
	sign := ""
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	total := int64(math.Round(deg * 3600))
	if total == 0 {
		sign = ""
	}
	return fmt.Sprintf("%s%d°%02d'%02d\"", sign, total/3600, (total%3600)/60, total%60)
}

// FormatBearing renders a whole-circle azimuth in degrees as a quadrant
// bearing such as N 45°30'00" E.
func FormatBearing(azimuth float64) string {
	az := math.Mod(azimuth, 360)
	if az < 0 {
		az += 360
	}
	switch {
	case az <= 90:
		return "N " + FormatDMS(az) + " E"
	case az < 180:
		return "S " + FormatDMS(180-az) + " E"
	case az <= 270:
		return "S " + FormatDMS(az-180) + " W"
	default:
		return "N " + FormatDMS(360-az) + " W"
	}
}

// withUnit appends a display unit. Angle and percent symbols attach
// directly; anything else is separated by a space.
func withUnit(s, unit string) string {
	switch unit {
	case "":
		return s
	case "°", "%", "'", "\"":
		return s + unit
	}
	return s + " " + unit
}
