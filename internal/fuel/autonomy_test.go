package fuel

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

func TestForDistance_Scenario(t *testing.T) {
	r := ForDistance(197, Params{FuelL: 200, BurnRateLPH: 40, CruiseSpeedKT: 100, ReserveMin: 30})

	assert.InDelta(t, 1.97, r.FlightTimeH, 1e-9)
	assert.InDelta(t, 78.8, r.FuelForFlightL, 1e-9)
	assert.InDelta(t, 20.0, r.FuelReserveL, 1e-9)
	assert.InDelta(t, 98.8, r.FuelRequiredTotalL, 1e-9)
	assert.True(t, r.Sufficient)
	assert.InDelta(t, 101.2, r.SurplusL(), 1e-9)
}

func TestCompute_SBSPtoSBRJ(t *testing.T) {
	r, err := Compute(sbsp, sbrj, Params{FuelL: 200, BurnRateLPH: 40, CruiseSpeedKT: 100, ReserveMin: 30})
	require.NoError(t, err)

	assert.InDelta(t, 197, r.DistanceNM, 2)
	assert.InDelta(t, 1.97, r.FlightTimeH, 0.02)
	assert.InDelta(t, 78.8, r.FuelForFlightL, 0.8)
	assert.InDelta(t, 20, r.FuelReserveL, 1e-9)
	assert.InDelta(t, 98.8, r.FuelRequiredTotalL, 0.8)
	assert.True(t, r.Sufficient)
}

func TestCompute_Insufficient(t *testing.T) {
	r, err := Compute(sbsp, sbrj, Params{FuelL: 60, BurnRateLPH: 40, CruiseSpeedKT: 100, ReserveMin: 30})
	require.NoError(t, err)
	assert.False(t, r.Sufficient)
	assert.Less(t, r.SurplusL(), 0.0)
}

func TestCompute_ExactlyEnoughIsSufficient(t *testing.T) {
	r := ForDistance(100, Params{FuelL: 60, BurnRateLPH: 40, CruiseSpeedKT: 100, ReserveMin: 30})
	assert.InDelta(t, 60, r.FuelRequiredTotalL, 1e-9)
	assert.True(t, r.Sufficient)
}

func TestCompute_ZeroCruiseSpeed(t *testing.T) {
	r, err := Compute(sbsp, sbrj, Params{FuelL: 10, BurnRateLPH: 40, CruiseSpeedKT: 0, ReserveMin: 30})
	require.NoError(t, err)

	assert.Zero(t, r.FlightTimeH)
	assert.Zero(t, r.FuelForFlightL)
	assert.False(t, math.IsInf(r.FlightTimeH, 0) || math.IsNaN(r.FlightTimeH))
	assert.InDelta(t, 20, r.FuelRequiredTotalL, 1e-9)
	assert.False(t, r.Sufficient)
}

func TestCompute_NegativeInputsClamped(t *testing.T) {
	r := ForDistance(100, Params{FuelL: -5, BurnRateLPH: -40, CruiseSpeedKT: -100, ReserveMin: -30})
	assert.Zero(t, r.FlightTimeH)
	assert.Zero(t, r.FuelRequiredTotalL)
	assert.Zero(t, r.FuelOnBoardL)
	assert.True(t, r.Sufficient, "nothing required, nothing on board")
}

func TestCompute_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		name         string
		origin, dest aero.Coordinate
	}{
		{"origin NaN", aero.Coordinate{Lat: math.NaN(), Lon: 0}, sbrj},
		{"dest Inf", sbsp, aero.Coordinate{Lat: 0, Lon: math.Inf(1)}},
		{"dest out of range", sbsp, aero.Coordinate{Lat: 95, Lon: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.origin, tt.dest, Params{FuelL: 100, BurnRateLPH: 10, CruiseSpeedKT: 100})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIndeterminate))
		})
	}
}

func TestEvaluate(t *testing.T) {
	p := Params{FuelL: 200, BurnRateLPH: 40, CruiseSpeedKT: 100, ReserveMin: DefaultReserveMin}

	out := Evaluate(aero.Ok(sbsp), aero.Ok(sbrj), p)
	require.True(t, out.OK())
	assert.True(t, out.Value().Sufficient)

	out = Evaluate(aero.Unavailable[aero.Coordinate]("rotaer fetch failed"), aero.Ok(sbrj), p)
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "autonomy indeterminate")
	assert.Contains(t, out.Reason(), "rotaer fetch failed")

	out = Evaluate(aero.Ok(sbsp), aero.Ok(aero.Coordinate{Lat: math.NaN()}), p)
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "destination")
}

func TestEndurance(t *testing.T) {
	assert.InDelta(t, 5.0, Endurance(Params{FuelL: 200, BurnRateLPH: 40}), 1e-9)
	assert.Zero(t, Endurance(Params{FuelL: 200}))
}
