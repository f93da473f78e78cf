package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	knotsToMetersPerSecond = (1 / 3.6) * 1.852
	kmhToMetersPerSecond   = 1 / 3.6
)

// ParseLatitude converts "DDMM.MMMM" plus "N"/"S" into decimal degrees.
func ParseLatitude(v, hemi string) (float64, error) {
	return parseCoordinate(v, hemi, "N", "S")
}

// ParseLongitude converts "DDDMM.MMMM" plus "E"/"W" into decimal degrees.
func ParseLongitude(v, hemi string) (float64, error) {
	return parseCoordinate(v, hemi, "E", "W")
}

func parseCoordinate(v, hemi, pos, neg string) (float64, error) {
	v = strings.TrimSpace(v)
	hemi = strings.ToUpper(strings.TrimSpace(hemi))
	if v == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	raw, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("coordinate %q: %w", v, err)
	}

	// floor(v/100) is whole degrees; the remainder is minutes/100.
	deg := math.Floor(raw / 100)
	dec := deg + (raw/100-deg)/0.6

	switch hemi {
	case pos:
	case neg:
		dec = -dec
	default:
		return 0, fmt.Errorf("bad hemisphere %q", hemi)
	}
	return dec, nil
}

// ParseSpeed converts a speed in knots (unit "N") or km/h (unit "K") into m/s.
func ParseSpeed(v, unit string) (float64, error) {
	f, ok := parseFloat(v)
	if !ok {
		return 0, fmt.Errorf("bad speed %q", v)
	}
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "N":
		return f * knotsToMetersPerSecond, nil
	case "K":
		return f * kmhToMetersPerSecond, nil
	default:
		return 0, fmt.Errorf("bad speed unit %q", unit)
	}
}

// ParseTimeOfDay parses an "hhmmss[.sss]" UTC time token into the offset
// from midnight.
func ParseTimeOfDay(token string) (time.Duration, error) {
	token = strings.TrimSpace(token)
	if len(token) < 6 {
		return 0, fmt.Errorf("short time %q", token)
	}
	hh, err1 := strconv.Atoi(token[0:2])
	mm, err2 := strconv.Atoi(token[2:4])
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("bad time %q", token)
	}
	sec, err := strconv.ParseFloat(token[4:], 64)
	if err != nil {
		return 0, fmt.Errorf("bad time %q", token)
	}
	if hh > 23 || mm > 59 || sec < 0 || sec >= 61 {
		return 0, fmt.Errorf("time out of range %q", token)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	d += time.Duration(math.Round(sec*1000)) * time.Millisecond
	return d, nil
}

// ParseDate parses a "ddmmyy" date token into midnight UTC of that day.
func ParseDate(token string) (time.Time, error) {
	t, err := time.Parse("020106", strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q", token)
	}
	return t.UTC(), nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
