package geo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"preflight/internal/aero"
)

// ErrBadCoordinate is returned when a latitude or longitude cannot be parsed.
var ErrBadCoordinate = errors.New("unparseable coordinate")

var (
	// Compact DMS as published in rotaer: 233734S, 0463922W, 233734.52S.
	compactDMSRe = regexp.MustCompile(`^(\d{6,7})(\.\d+)?([NSEW])$`)

	// Separated DMS: 23 37 34S, 23°37'34"S, 23-37-34.5 S.
	sepDMSRe = regexp.MustCompile(`^(\d{1,3})[\s°º:-]+(\d{1,2})[\s'’:-]+(\d{1,2}(?:\.\d+)?)["”]?\s*([NSEW])$`)

	// Decimal with an optional hemisphere: -23.6261, 23.6261S, S23.6261.
	decimalRe = regexp.MustCompile(`^([NSEW])?\s*([-+]?\d+(?:\.\d+)?)\s*([NSEW])?$`)
)

// ParseCoordinate parses a latitude/longitude pair from provider text and
// validates the result. Either component failing makes the pair invalid.
func ParseCoordinate(lat, lon string) (aero.Coordinate, error) {
	la, err := ParseLatitude(lat)
	if err != nil {
		return aero.Coordinate{}, fmt.Errorf("latitude %q: %w", lat, err)
	}
	lo, err := ParseLongitude(lon)
	if err != nil {
		return aero.Coordinate{}, fmt.Errorf("longitude %q: %w", lon, err)
	}
	c := aero.Coordinate{Lat: la, Lon: lo}
	if !c.Valid() {
		return aero.Coordinate{}, fmt.Errorf("%v out of range: %w", c, ErrBadCoordinate)
	}
	return c, nil
}

// ParseLatitude parses a latitude. Compact DMS uses 2 degree digits.
func ParseLatitude(s string) (float64, error) {
	return parseAxis(s, 2, 90, "NS")
}

// ParseLongitude parses a longitude. Compact DMS uses 3 degree digits.
func ParseLongitude(s string) (float64, error) {
	return parseAxis(s, 3, 180, "EW")
}

func parseAxis(s string, degDigits int, limit float64, hemis string) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrBadCoordinate
	}

	var val float64
	var dir string

	switch {
	case compactDMSRe.MatchString(s):
		m := compactDMSRe.FindStringSubmatch(s)
		digits, frac := m[1], m[2]
		if len(digits) != degDigits+4 {
			return 0, ErrBadCoordinate
		}
		deg, _ := strconv.Atoi(digits[:degDigits])
		min, _ := strconv.Atoi(digits[degDigits : degDigits+2])
		sec, _ := strconv.ParseFloat(digits[degDigits+2:]+frac, 64)
		if min >= 60 || sec >= 60 {
			return 0, ErrBadCoordinate
		}
		val = float64(deg) + float64(min)/60 + sec/3600
		dir = m[3]

	case sepDMSRe.MatchString(s):
		m := sepDMSRe.FindStringSubmatch(s)
		deg, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, _ := strconv.ParseFloat(m[3], 64)
		if min >= 60 || sec >= 60 {
			return 0, ErrBadCoordinate
		}
		val = float64(deg) + float64(min)/60 + sec/3600
		dir = m[4]

	case decimalRe.MatchString(s):
		m := decimalRe.FindStringSubmatch(s)
		if m[1] != "" && m[3] != "" {
			return 0, ErrBadCoordinate
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, ErrBadCoordinate
		}
		val = v
		dir = m[1] + m[3]
		if dir != "" && val < 0 {
			// A hemisphere letter and a sign together are ambiguous.
			return 0, ErrBadCoordinate
		}

	default:
		return 0, ErrBadCoordinate
	}

	if dir != "" && !strings.Contains(hemis, dir) {
		return 0, ErrBadCoordinate
	}
	if dir == "S" || dir == "W" {
		val = -val
	}
	if val < -limit || val > limit {
		return 0, ErrBadCoordinate
	}
	return val, nil
}

// ParsePair parses "lat,lon" in decimal or DMS form.
func ParsePair(s string) (aero.Coordinate, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return aero.Coordinate{}, fmt.Errorf("%q: want lat,lon: %w", s, ErrBadCoordinate)
	}
	return ParseCoordinate(lat, lon)
}
