package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/aero"
)

var (
	sbsp = aero.Coordinate{Lat: -23.626, Lon: -46.656}
	sbrj = aero.Coordinate{Lat: -22.910, Lon: -43.163}
)

// almostEqual checks if two floats are equal within a tolerance.
func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestDistanceNM_SBSPtoSBRJ(t *testing.T) {
	d := DistanceNM(sbsp, sbrj)
	if !almostEqual(d, 197, 2) {
		t.Errorf("DistanceNM(SBSP, SBRJ) = %.2f, want ~197", d)
	}
}

func TestDistanceNM_Identity(t *testing.T) {
	points := []aero.Coordinate{
		{Lat: 0, Lon: 0},
		sbsp,
		{Lat: 89.9999, Lon: 179.9999},
		{Lat: -90, Lon: -180},
		{Lat: 51.4775, Lon: -0.4614},
	}
	for _, p := range points {
		assert.InDelta(t, 0, DistanceNM(p, p), 1e-6, "point %v", p)
	}
}

func TestDistanceNM_Symmetric(t *testing.T) {
	pairs := [][2]aero.Coordinate{
		{sbsp, sbrj},
		{{Lat: 40.6413, Lon: -73.7781}, {Lat: 51.4700, Lon: -0.4543}},
		{{Lat: -33.9399, Lon: 151.1753}, {Lat: 1.3644, Lon: 103.9915}},
		{{Lat: 0, Lon: 179.5}, {Lat: 0, Lon: -179.5}},
	}
	for _, p := range pairs {
		ab := DistanceNM(p[0], p[1])
		ba := DistanceNM(p[1], p[0])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistanceNM_Antipodal(t *testing.T) {
	tests := []struct {
		name string
		a, b aero.Coordinate
	}{
		{"equator", aero.Coordinate{Lat: 0, Lon: 0}, aero.Coordinate{Lat: 0, Lon: 180}},
		{"poles", aero.Coordinate{Lat: 90, Lon: 0}, aero.Coordinate{Lat: -90, Lon: 0}},
		{"oblique", aero.Coordinate{Lat: 10, Lon: 20}, aero.Coordinate{Lat: -10, Lon: -160}},
	}
	half := math.Pi * EarthRadiusNM
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistanceNM(tt.a, tt.b)
			require.False(t, math.IsNaN(d), "distance must not be NaN")
			assert.InDelta(t, half, d, 0.01)
		})
	}
}

func TestDistanceNM_OneDegreeLatitude(t *testing.T) {
	d := DistanceNM(aero.Coordinate{Lat: 0, Lon: 0}, aero.Coordinate{Lat: 1, Lon: 0})
	assert.InDelta(t, 60.04, d, 0.01)
}

func TestParseLatitude(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"decimal negative", "-23.626111", -23.626111},
		{"decimal with hemisphere", "23.626111S", -23.626111},
		{"leading hemisphere", "S23.5", -23.5},
		{"compact DMS", "233734S", -23.626111},
		{"compact DMS decimal seconds", "233734.5N", 23.626250},
		{"separated DMS", "23 37 34S", -23.626111},
		{"symbol DMS", `23°37'34"S`, -23.626111},
		{"integer", "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLatitude(tt.input)
			require.NoError(t, err)
			if !almostEqual(got, tt.want, 1e-5) {
				t.Errorf("ParseLatitude(%q) = %f, want %f", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLongitude(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"-46.656", -46.656},
		{"0463922W", -46.656111},
		{"1512335E", 151.393056},
		{"046 39 22W", -46.656111},
	}
	for _, tt := range tests {
		got, err := ParseLongitude(tt.input)
		require.NoError(t, err, tt.input)
		if !almostEqual(got, tt.want, 1e-5) {
			t.Errorf("ParseLongitude(%q) = %f, want %f", tt.input, got, tt.want)
		}
	}
}

func TestParseCoordinate_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon string
	}{
		{"empty lat", "", "-46.6"},
		{"empty lon", "-23.6", ""},
		{"garbage", "abc", "def"},
		{"lat out of range", "91.0", "0"},
		{"lon out of range", "0", "181"},
		{"wrong hemisphere", "23.5E", "46.6W"},
		{"sign and hemisphere", "-23.5S", "46.6W"},
		{"bad minutes", "236034S", "0463922W"},
		{"compact wrong width", "0233734S", "0463922W"},
		{"NaN", "NaN", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCoordinate(tt.lat, tt.lon)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadCoordinate), "want ErrBadCoordinate, got %v", err)
		})
	}
}

func TestParsePair(t *testing.T) {
	c, err := ParsePair("-23.626,-46.656")
	require.NoError(t, err)
	assert.Equal(t, sbsp, c)

	_, err = ParsePair("-23.626")
	assert.ErrorIs(t, err, ErrBadCoordinate)
}
