// Package aero provides the aerodrome data records shared by the evaluation
// engine and its data-retrieval collaborators.
package aero

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// FlexInt handles provider fields that can be a number, a numeric string,
// an empty string or garbage. Anything unparseable becomes 0.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexInt(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexInt(ParseLength(s))
		return nil
	}

	*f = 0
	return nil
}

// ParseLength parses a runway dimension as published by AISWEB ("1500",
// "1500 m", "1.500", "1500.0"). Missing or unparseable values are 0.
func ParseLength(s string) int {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSpace(strings.TrimSuffix(s, "m"))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	if thousandsRe.MatchString(s) {
		n, _ := strconv.Atoi(thousandsSep.Replace(s))
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

var (
	thousandsRe  = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)
	thousandsSep = strings.NewReplacer(".", "", ",", "")
)

// RunwayRecord is one runway as seen by the engine.
type RunwayRecord struct {
	Ident   string `json:"ident"`
	LengthM int    `json:"length_m"`
	WidthM  int    `json:"width_m"`
}

// Coordinate is a position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite and in range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// NotamRecord is a single notice to airmen.
type NotamRecord struct {
	Code      string `json:"code"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
	Info      string `json:"info"`
}

// Defaults used when the provider leaves NOTAM fields empty.
const (
	NotamNoCode = "N/A"
	NotamNoTime = "unknown"
	NotamNoInfo = "no description"
)

// NewNotam builds a NotamRecord, substituting defaults for empty fields.
// An empty location falls back to the queried aerodrome.
func NewNotam(icao, code, location, timestamp, info string) NotamRecord {
	n := NotamRecord{
		Code:      strings.TrimSpace(code),
		Location:  strings.TrimSpace(location),
		Timestamp: strings.TrimSpace(timestamp),
		Info:      strings.TrimSpace(info),
	}
	if n.Code == "" {
		n.Code = NotamNoCode
	}
	if n.Location == "" {
		n.Location = icao
	}
	if n.Timestamp == "" {
		n.Timestamp = NotamNoTime
	}
	if n.Info == "" {
		n.Info = NotamNoInfo
	}
	return n
}

// Aerodrome is everything the retrieval layer could (or could not) find for
// one ICAO code. Every field is resolved: either a value or an explicit
// Unavailable reason.
type Aerodrome struct {
	ICAO       string                  `json:"icao"`
	Name       string                  `json:"name,omitempty"`
	Coordinate Outcome[Coordinate]     `json:"coordinate"`
	Runways    Outcome[[]RunwayRecord] `json:"runways"`
	Reports    Outcome[[]string]       `json:"reports"`
	Forecasts  Outcome[[]string]       `json:"forecasts"`
	Notams     Outcome[[]NotamRecord]  `json:"notams"`
}

// NormaliseICAO upper-cases and trims an aerodrome code.
func NormaliseICAO(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsICAO reports whether code looks like a four-letter ICAO identifier.
func IsICAO(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
