// Package geo provides great-circle distance and coordinate parsing for
// aerodrome positions.
package geo

import (
	"math"

	"preflight/internal/aero"
)

// EarthRadiusNM is the mean Earth radius in nautical miles.
const EarthRadiusNM = 3440.065

func rad(d float64) float64 { return d * math.Pi / 180 }

// DistanceNM returns the haversine great-circle distance between a and b in
// nautical miles. The haversine term is clamped to [0,1] so rounding near
// antipodal or identical points cannot push asin out of its domain.
// Callers must check Valid() first; invalid input yields NaN.
func DistanceNM(a, b aero.Coordinate) float64 {
	lat1, lat2 := rad(a.Lat), rad(b.Lat)
	dlat := lat2 - lat1
	dlon := rad(b.Lon - a.Lon)

	sdlat := math.Sin(dlat / 2)
	sdlon := math.Sin(dlon / 2)
	h := sdlat*sdlat + math.Cos(lat1)*math.Cos(lat2)*sdlon*sdlon
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusNM * math.Asin(math.Sqrt(h))
}
