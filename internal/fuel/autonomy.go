// Package fuel computes trip fuel, reserve and endurance for a direct leg.
package fuel

import (
	"errors"
	"fmt"

	"preflight/internal/aero"
	"preflight/internal/geo"
)

// DefaultReserveMin is the daytime VFR fuel reserve, in minutes.
const DefaultReserveMin = 30

// ErrIndeterminate means autonomy cannot be computed because a coordinate is
// missing or invalid. It is not the same as "insufficient".
var ErrIndeterminate = errors.New("autonomy indeterminate")

// Params are the pilot-entered figures.
type Params struct {
	FuelL         float64 `json:"fuel_l"`
	BurnRateLPH   float64 `json:"burn_rate_lph"`
	CruiseSpeedKT float64 `json:"cruise_speed_kt"`
	ReserveMin    float64 `json:"reserve_min"`
}

// Clamped returns p with negative figures replaced by zero.
func (p Params) Clamped() Params {
	return Params{
		FuelL:         max(p.FuelL, 0),
		BurnRateLPH:   max(p.BurnRateLPH, 0),
		CruiseSpeedKT: max(p.CruiseSpeedKT, 0),
		ReserveMin:    max(p.ReserveMin, 0),
	}
}

// Result is a computed autonomy. It is derived per evaluation and never
// cached.
type Result struct {
	DistanceNM         float64 `json:"distance_nm"`
	FlightTimeH        float64 `json:"flight_time_h"`
	FuelForFlightL     float64 `json:"fuel_for_flight_l"`
	FuelReserveL       float64 `json:"fuel_reserve_l"`
	FuelRequiredTotalL float64 `json:"fuel_required_total_l"`
	FuelOnBoardL       float64 `json:"fuel_on_board_l"`
	Sufficient         bool    `json:"sufficient"`
}

// SurplusL is fuel on board minus the total requirement.
func (r Result) SurplusL() float64 { return r.FuelOnBoardL - r.FuelRequiredTotalL }

// Compute derives the autonomy for a direct leg from origin to dest.
// A zero cruise speed gives a zero flight time instead of dividing by zero.
func Compute(origin, dest aero.Coordinate, p Params) (Result, error) {
	if !origin.Valid() {
		return Result{}, fmt.Errorf("origin coordinate: %w", ErrIndeterminate)
	}
	if !dest.Valid() {
		return Result{}, fmt.Errorf("destination coordinate: %w", ErrIndeterminate)
	}
	return ForDistance(geo.DistanceNM(origin, dest), p), nil
}

// ForDistance computes autonomy for a known distance in nautical miles.
func ForDistance(distanceNM float64, p Params) Result {
	p = p.Clamped()

	var hours float64
	if p.CruiseSpeedKT > 0 {
		hours = distanceNM / p.CruiseSpeedKT
	}

	r := Result{
		DistanceNM:     distanceNM,
		FlightTimeH:    hours,
		FuelForFlightL: hours * p.BurnRateLPH,
		FuelReserveL:   p.BurnRateLPH * (p.ReserveMin / 60),
		FuelOnBoardL:   p.FuelL,
	}
	r.FuelRequiredTotalL = r.FuelForFlightL + r.FuelReserveL
	r.Sufficient = p.FuelL >= r.FuelRequiredTotalL
	return r
}

// Evaluate wraps Compute as a tagged outcome. Unavailable coordinates, or a
// failed computation, give an Unavailable outcome carrying the reason.
func Evaluate(origin, dest aero.Outcome[aero.Coordinate], p Params) aero.Outcome[Result] {
	o, ok := origin.Get()
	if !ok {
		return aero.Unavailable[Result](ErrIndeterminate.Error() + ": origin coordinate " + origin.Reason())
	}
	d, ok := dest.Get()
	if !ok {
		return aero.Unavailable[Result](ErrIndeterminate.Error() + ": destination coordinate " + dest.Reason())
	}
	r, err := Compute(o, d, p)
	if err != nil {
		return aero.Unavailable[Result](err.Error())
	}
	return aero.Ok(r)
}

// Endurance is how long the fuel on board lasts at the given burn rate, in
// hours. Zero burn rate gives zero.
func Endurance(p Params) float64 {
	p = p.Clamped()
	if p.BurnRateLPH == 0 {
		return 0
	}
	return p.FuelL / p.BurnRateLPH
}
